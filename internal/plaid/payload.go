package plaid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// errNotObject is returned when a response body is valid JSON but not an object.
var errNotObject = errors.New("response body is not a JSON object")

// Payload is a decoded provider response body. Raw holds the untouched bytes so
// callers can read provider fields this package does not interpret.
type Payload struct {
	Response    *ResponseMeta
	Code        *int
	Raw         json.RawMessage
	MFA         json.RawMessage
	Message     string
	Resolve     string
	AccessToken string
	Type        string
}

// decodePayload parses a response body into a Payload. Only JSON objects are
// accepted, matching what the connect endpoints return. Envelope fields of an
// unexpected type are read leniently so a reachable provider is never
// reported as unreachable: a numeric string code counts as the code, and a
// non-string message keeps its JSON text.
func decodePayload(body []byte, meta *ResponseMeta) (*Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return nil, errNotObject
		}
		return nil, fmt.Errorf("invalid JSON response body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	var mfa json.RawMessage
	if raw := fields["mfa"]; len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		mfa = raw
	}

	return &Payload{
		Raw:         json.RawMessage(trimmed),
		Response:    meta,
		Code:        envelopeCode(fields["code"]),
		Message:     envelopeText(fields["message"]),
		Resolve:     envelopeText(fields["resolve"]),
		AccessToken: envelopeString(fields["access_token"]),
		Type:        envelopeString(fields["type"]),
		MFA:         mfa,
	}, nil
}

// envelopeCode reads a status code sent as a number or a numeric string.
func envelopeCode(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	code, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return nil
		}
		code = int(f)
	}
	return &code
}

// envelopeString reads a string field, ignoring any other type.
func envelopeString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// envelopeText reads a human-readable field, keeping non-string values as JSON text.
func envelopeText(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// Decode unmarshals the raw body into v.
func (p *Payload) Decode(v any) error {
	return json.Unmarshal(p.Raw, v)
}

// HasCode reports whether the provider reported a status code in the body.
func (p *Payload) HasCode() bool {
	return p.Code != nil
}

// ProviderError returns the provider-reported error, if any.
func (p *Payload) ProviderError() *ProviderError {
	if p.Code == nil {
		return nil
	}
	return &ProviderError{Code: *p.Code, Message: p.Message, Resolve: p.Resolve}
}

// Link classifies the payload the same way Login does, so MFA and update
// responses can drive the caller's linking state machine.
func (p *Payload) Link() LinkResult {
	result := LinkResult{Payload: p, Response: p.Response}

	switch {
	case p.MFA != nil:
		result.Kind = LinkChallenge
		result.Challenge = &MFAChallenge{
			Type:        p.Type,
			Prompts:     p.MFA,
			AccessToken: p.AccessToken,
		}
	case p.AccessToken != "":
		result.Kind = LinkAccessToken
		result.AccessToken = p.AccessToken
	case p.Code != nil:
		result.Kind = LinkFailed
		result.Failure = p.ProviderError()
	default:
		result.Kind = LinkNone
	}

	return result
}

// ProviderError is an error code reported in a response body.
type ProviderError struct {
	Message string
	Resolve string
	Code    int
}

func (e *ProviderError) Error() string {
	if e.Resolve != "" {
		return fmt.Sprintf("plaid error %d: %s (%s)", e.Code, e.Message, e.Resolve)
	}
	return fmt.Sprintf("plaid error %d: %s", e.Code, e.Message)
}
