package plaid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// Status codes in this range mean the link must be re-verified.
const (
	notConnectedCodeMin = 1200
	notConnectedCodeMax = 1209
)

// SyncKind tags the outcome of a download.
type SyncKind int

// Download outcomes.
const (
	// OutcomeEmpty means no usable data and no status code. Response is nil
	// when the provider could not be reached or the body was not decodable.
	OutcomeEmpty SyncKind = iota
	// OutcomeData carries the first account and its transactions.
	OutcomeData
	// OutcomeNotConnected means a code in 1200..1209 came back; Err is a *SyncError.
	OutcomeNotConnected
	// OutcomeIndeterminate means any other status code came back. It is not
	// surfaced as data or error; callers treat it as "not ready yet".
	OutcomeIndeterminate
)

func (k SyncKind) String() string {
	switch k {
	case OutcomeData:
		return "data"
	case OutcomeNotConnected:
		return "not_connected"
	case OutcomeIndeterminate:
		return "indeterminate"
	default:
		return "empty"
	}
}

// SyncOutcome is the classified result of a download.
type SyncOutcome struct {
	Err          error
	Account      *model.Account
	Payload      *Payload
	Response     *ResponseMeta
	Transactions []model.Transaction
	Code         int
	Kind         SyncKind
}

// syncBody lists the fields the sync classification reads.
type syncBody struct {
	Transactions *[]json.RawMessage `json:"transactions"`
	Accounts     []json.RawMessage  `json:"accounts"`
}

// Download fetches transactions and an account snapshot for an access token.
// from and to are optional inclusive calendar-date bounds.
func (c *Client) Download(ctx context.Context, accessToken, account string, pending bool, from, to *time.Time) SyncOutcome {
	query := url.Values{}
	query.Set("client_id", c.clientID)
	query.Set("secret", c.secret)
	query.Set("access_token", accessToken)
	for k, v := range c.syncOptions(account, pending, from, to) {
		query.Set("options["+k+"]", v)
	}

	body, meta, err := c.exchange(ctx, request{
		method:   http.MethodGet,
		endpoint: "connect_get",
		url:      c.env.ConnectURL(),
		query:    query,
	})
	if err != nil {
		return c.recordOutcome(SyncOutcome{Kind: OutcomeEmpty})
	}

	payload, err := decodePayload(body, meta)
	if err != nil {
		c.logger.Debug("Sync response not decodable", "error", err)
		return c.recordOutcome(SyncOutcome{Kind: OutcomeEmpty})
	}

	return c.recordOutcome(c.classifySync(accessToken, payload))
}

// syncOptions builds the options object flattened into the download query.
func (c *Client) syncOptions(account string, pending bool, from, to *time.Time) map[string]string {
	options := map[string]string{
		"account": account,
		"pending": "0",
	}
	if pending {
		options["pending"] = "1"
	}
	if from != nil {
		options["gte"] = c.dates.Format(*from)
	}
	if to != nil {
		options["lte"] = c.dates.Format(*to)
	}
	return options
}

// classifySync applies the outcome rules in priority order.
func (c *Client) classifySync(accessToken string, payload *Payload) SyncOutcome {
	outcome := SyncOutcome{Payload: payload, Response: payload.Response}

	if payload.Code != nil {
		outcome.Code = *payload.Code
		if outcome.Code >= notConnectedCodeMin && outcome.Code <= notConnectedCodeMax {
			outcome.Kind = OutcomeNotConnected
			outcome.Err = &SyncError{
				Kind:        SyncNotConnected,
				AccessToken: accessToken,
				Provider:    payload.ProviderError(),
			}
			return outcome
		}
		// Codes outside 1200..1209 are deliberately not classified.
		outcome.Kind = OutcomeIndeterminate
		return outcome
	}

	var data syncBody
	if err := payload.Decode(&data); err != nil || data.Transactions == nil || len(data.Accounts) == 0 {
		outcome.Kind = OutcomeEmpty
		return outcome
	}

	// Odd fields are logged and left empty; every entry is kept in order.
	account, err := model.DecodeAccount(data.Accounts[0])
	if err != nil {
		c.logger.Warn("Sync account partially decoded", "error", err)
	}

	transactions := make([]model.Transaction, 0, len(*data.Transactions))
	for i, entry := range *data.Transactions {
		tx, err := model.DecodeTransaction(entry)
		if err != nil {
			c.logger.Warn("Sync transaction partially decoded", "index", i, "error", err)
		}
		transactions = append(transactions, tx)
	}

	outcome.Kind = OutcomeData
	outcome.Account = &account
	outcome.Transactions = transactions
	return outcome
}

func (c *Client) recordOutcome(outcome SyncOutcome) SyncOutcome {
	c.metrics.RecordSyncOutcome(outcome.Kind.String())
	return outcome
}
