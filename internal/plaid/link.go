package plaid

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// LinkKind tags the outcome of a credential or MFA submission.
type LinkKind int

// Link outcomes.
const (
	// LinkNone means nothing usable came back.
	LinkNone LinkKind = iota
	// LinkAccessToken means the link completed and AccessToken is durable.
	LinkAccessToken
	// LinkChallenge means the institution asked for another MFA answer.
	LinkChallenge
	// LinkFailed means the provider rejected the attempt with an error code.
	LinkFailed
)

func (k LinkKind) String() string {
	switch k {
	case LinkAccessToken:
		return "access_token"
	case LinkChallenge:
		return "challenge"
	case LinkFailed:
		return "failed"
	default:
		return "none"
	}
}

// LinkState is the caller-visible state of a linking attempt.
type LinkState int

// Linking attempt states. Linked and Failed are terminal.
const (
	AwaitingCredentials LinkState = iota
	AwaitingMFA
	Linked
	Failed
)

func (s LinkState) String() string {
	switch s {
	case AwaitingMFA:
		return "awaiting_mfa"
	case Linked:
		return "linked"
	case Failed:
		return "failed"
	default:
		return "awaiting_credentials"
	}
}

// Terminal reports whether no further submissions apply.
func (s LinkState) Terminal() bool {
	return s == Linked || s == Failed
}

// LinkResult resolves one credential or MFA submission. Payload carries the
// raw provider body whenever one was decodable.
type LinkResult struct {
	Challenge   *MFAChallenge
	Failure     *ProviderError
	Payload     *Payload
	Response    *ResponseMeta
	AccessToken string
	Kind        LinkKind
}

// State maps the outcome onto the linking state machine.
func (r LinkResult) State() LinkState {
	switch r.Kind {
	case LinkAccessToken:
		return Linked
	case LinkChallenge:
		return AwaitingMFA
	default:
		return Failed
	}
}

// MFAChallenge is a provider-issued verification prompt. AccessToken is the
// in-progress token that must accompany the answer; it belongs to exactly one
// linking attempt.
type MFAChallenge struct {
	Type        string
	AccessToken string
	Prompts     json.RawMessage
}

// MFADevice is a delivery target offered for a code challenge.
type MFADevice struct {
	Mask string `json:"mask"`
	Type string `json:"type"`
}

// MFASelection is a multiple choice question.
type MFASelection struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

// Questions returns the prompts of a question challenge.
func (m *MFAChallenge) Questions() []string {
	var entries []struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(m.Prompts, &entries); err != nil {
		return nil
	}
	questions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Question != "" {
			questions = append(questions, e.Question)
		}
	}
	return questions
}

// Devices returns the delivery options of a list challenge.
func (m *MFAChallenge) Devices() []MFADevice {
	var devices []MFADevice
	if err := json.Unmarshal(m.Prompts, &devices); err != nil {
		return nil
	}
	return devices
}

// Selections returns the multiple choice questions of a selections challenge.
func (m *MFAChallenge) Selections() []MFASelection {
	var selections []MFASelection
	if err := json.Unmarshal(m.Prompts, &selections); err != nil {
		return nil
	}
	return selections
}

// Message returns the notice of a code challenge, e.g. where the code was sent.
func (m *MFAChallenge) Message() string {
	var notice struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(m.Prompts, &notice); err != nil {
		return ""
	}
	return notice.Message
}

// Login submits credentials to begin linking an institution. The PIN is always
// sent, empty when the institution does not need one.
func (c *Client) Login(ctx context.Context, inst model.Institution, username, password, pin string) LinkResult {
	payload := c.credentials()
	payload["credentials"] = map[string]string{
		"username": username,
		"password": password,
		"pin":      pin,
	}
	payload["type"] = inst.Type

	body, meta, err := c.exchange(ctx, request{
		method:   http.MethodPost,
		endpoint: "connect",
		url:      c.env.ConnectURL(),
		body:     payload,
	})
	if err != nil {
		return LinkResult{Kind: LinkNone, Response: meta}
	}

	decoded, err := decodePayload(body, meta)
	if err != nil {
		c.logger.Debug("Login response not decodable", "institution", inst.Type, "error", err)
		return LinkResult{Kind: LinkNone, Response: meta}
	}

	result := decoded.Link()
	c.logger.Debug("Login resolved", "institution", inst.Type, "outcome", result.Kind)
	return result
}

// MFAOption adds optional fields to an MFA submission.
type MFAOption func(options map[string]any)

// WithSendMethod asks the provider to deliver the code through the device
// identified by key ("mask" or "type") and value.
func WithSendMethod(key, value string) MFAOption {
	return func(options map[string]any) {
		options["send_method"] = map[string]string{key: value}
	}
}

// SubmitMFA answers the pending challenge of a linking attempt. It returns the
// decoded provider body, or nil when nothing decodable came back; use
// Payload.Link to tell another challenge from a finished link.
func (c *Client) SubmitMFA(ctx context.Context, answer string, inst model.Institution, accessToken string, opts ...MFAOption) *Payload {
	payload := c.credentials()
	payload["mfa"] = answer
	payload["access_token"] = accessToken
	payload["type"] = inst.Type
	if options := mfaOptions(opts); options != nil {
		payload["options"] = options
	}

	return c.passThrough(ctx, request{
		method:   http.MethodPost,
		endpoint: "connect_step",
		url:      c.env.StepURL(),
		body:     payload,
	})
}

func mfaOptions(opts []MFAOption) map[string]any {
	if len(opts) == 0 {
		return nil
	}
	options := make(map[string]any, len(opts))
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// passThrough performs a request whose only contract is "decodable body or nil".
func (c *Client) passThrough(ctx context.Context, r request) *Payload {
	body, meta, err := c.exchange(ctx, r)
	if err != nil {
		return nil
	}

	decoded, err := decodePayload(body, meta)
	if err != nil {
		c.logger.Debug("Response not decodable", "endpoint", r.endpoint, "error", err)
		return nil
	}
	return decoded
}
