package plaid

import (
	"context"
	"net/http"
)

// PatchInstitution re-submits corrected credentials for an existing link,
// typically after a sync reported ErrNotConnected. It returns the decoded
// provider body or nil.
func (c *Client) PatchInstitution(ctx context.Context, accessToken, username, password, pin string) *Payload {
	payload := c.credentials()
	payload["username"] = username
	payload["password"] = password
	payload["pin"] = pin
	payload["access_token"] = accessToken

	return c.passThrough(ctx, request{
		method:   http.MethodPatch,
		endpoint: "connect_update",
		url:      c.env.ConnectURL(),
		body:     payload,
	})
}

// PatchSubmitMFA answers an MFA challenge raised while updating an existing link.
func (c *Client) PatchSubmitMFA(ctx context.Context, answer, accessToken string) *Payload {
	payload := c.credentials()
	payload["access_token"] = accessToken
	payload["mfa"] = answer

	return c.passThrough(ctx, request{
		method:   http.MethodPatch,
		endpoint: "connect_step_update",
		url:      c.env.StepURL(),
		body:     payload,
	})
}
