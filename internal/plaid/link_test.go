package plaid

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bofa = model.Institution{
	ID:          "5301a93ac140de84910000e0",
	Name:        "Bank of America",
	Type:        "bofa",
	Source:      model.SourcePlaid,
	Credentials: model.CredentialFields{Username: "Online ID", Password: "Password", PIN: "PIN"},
}

func TestLogin_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantToken   string
		wantCode    int
		status      int
		wantKind    LinkKind
		wantState   LinkState
		wantPayload bool
	}{
		{
			name:        "access token",
			status:      http.StatusOK,
			body:        `{"access_token":"test_bofa","accounts":[],"transactions":[]}`,
			wantKind:    LinkAccessToken,
			wantState:   Linked,
			wantToken:   "test_bofa",
			wantPayload: true,
		},
		{
			name:        "questions challenge",
			status:      http.StatusCreated,
			body:        `{"type":"questions","mfa":[{"question":"You say tomato, I say...?"}],"access_token":"test_bofa"}`,
			wantKind:    LinkChallenge,
			wantState:   AwaitingMFA,
			wantPayload: true,
		},
		{
			name:        "provider error",
			status:      http.StatusPaymentRequired,
			body:        `{"code":1200,"message":"invalid credentials","resolve":"The username or password provided were not correct."}`,
			wantKind:    LinkFailed,
			wantState:   Failed,
			wantCode:    1200,
			wantPayload: true,
		},
		{
			name:        "null mfa is not a challenge",
			status:      http.StatusOK,
			body:        `{"mfa":null,"access_token":"test_chase"}`,
			wantKind:    LinkAccessToken,
			wantState:   Linked,
			wantToken:   "test_chase",
			wantPayload: true,
		},
		{
			name:        "empty object",
			status:      http.StatusOK,
			body:        `{}`,
			wantKind:    LinkNone,
			wantState:   Failed,
			wantPayload: true,
		},
		{
			name:      "undecodable body",
			status:    http.StatusBadGateway,
			body:      `<html>bad gateway</html>`,
			wantKind:  LinkNone,
			wantState: Failed,
		},
		{
			name:      "array body",
			status:    http.StatusOK,
			body:      `["unexpected"]`,
			wantKind:  LinkNone,
			wantState: Failed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(t, tt.status, tt.body)
			client := newTestClient(t, provider.server.URL)

			result := client.Login(t.Context(), bofa, "plaid_test", "plaid_good", "1234")

			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantState, result.State())
			assert.Equal(t, tt.wantToken, result.AccessToken)

			require.NotNil(t, result.Response, "the server answered, so metadata is kept")
			assert.Equal(t, tt.status, result.Response.StatusCode)

			if !tt.wantPayload {
				assert.Nil(t, result.Payload)
				return
			}
			require.NotNil(t, result.Payload)
			assert.JSONEq(t, tt.body, string(result.Payload.Raw))

			if tt.wantCode != 0 {
				require.NotNil(t, result.Failure)
				assert.Equal(t, tt.wantCode, result.Failure.Code)
				assert.Contains(t, result.Failure.Error(), "invalid credentials")
			}
		})
	}
}

func TestLogin_WithPIN(t *testing.T) {
	body := `{"access_token":"test_bofa","accounts":[{"_id":"acct1"}],"transactions":[],"extra":{"nested":[1,2,3]}}`
	provider := newFakeProvider(t, http.StatusOK, body)
	client := newTestClient(t, provider.server.URL)

	result := client.Login(t.Context(), bofa, "plaid_test", "plaid_good", "1234")

	require.Equal(t, LinkAccessToken, result.Kind)
	require.NotNil(t, result.Payload)
	assert.JSONEq(t, body, string(result.Payload.Raw), "payload is forwarded unchanged")

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/connect", req.Path)
	assert.Equal(t, "bofa", req.Body["type"])
	assert.Equal(t, "test-client-id", req.Body["client_id"])
	assert.Equal(t, "test-secret", req.Body["secret"])
	assert.Equal(t, map[string]any{
		"username": "plaid_test",
		"password": "plaid_good",
		"pin":      "1234",
	}, req.Body["credentials"])
}

func TestLogin_EmptyPINStillSent(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"access_token":"test_chase"}`)
	client := newTestClient(t, provider.server.URL)

	chase := model.Institution{ID: "chase-id", Name: "Chase", Type: "chase"}
	client.Login(t.Context(), chase, "plaid_test", "plaid_good", "")

	creds, ok := provider.lastRequest(t).Body["credentials"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, creds, "pin")
	assert.Equal(t, "", creds["pin"])
}

func TestLogin_Unreachable(t *testing.T) {
	client := newTestClient(t, unreachableURL(t))

	result := client.Login(t.Context(), bofa, "plaid_test", "plaid_good", "1234")

	assert.Equal(t, LinkNone, result.Kind)
	assert.Nil(t, result.Payload)
	assert.Nil(t, result.Response)
}

func TestLogin_AttemptsAreIndependent(t *testing.T) {
	provider := newScriptedProvider(t, func(call int, _ *http.Request) (int, string) {
		return http.StatusOK, fmt.Sprintf(`{"access_token":"token_%d"}`, call)
	})
	client := newTestClient(t, provider.server.URL)

	first := client.Login(t.Context(), bofa, "user_a", "pass_a", "1111")
	second := client.Login(t.Context(), bofa, "user_b", "pass_b", "2222")

	assert.Equal(t, "token_1", first.AccessToken)
	assert.Equal(t, "token_2", second.AccessToken)
	assert.JSONEq(t, `{"access_token":"token_1"}`, string(first.Payload.Raw))
}

func TestMFAChallenge_Prompts(t *testing.T) {
	tests := []struct {
		check func(t *testing.T, c *MFAChallenge)
		name  string
		body  string
	}{
		{
			name: "questions",
			body: `{"type":"questions","mfa":[{"question":"What was your first car?"},{"question":""}],"access_token":"tok"}`,
			check: func(t *testing.T, c *MFAChallenge) {
				assert.Equal(t, []string{"What was your first car?"}, c.Questions())
			},
		},
		{
			name: "device list",
			body: `{"type":"list","mfa":[{"mask":"xxx-xxx-5309","type":"phone"},{"mask":"t..t@plaid.com","type":"email"}],"access_token":"tok"}`,
			check: func(t *testing.T, c *MFAChallenge) {
				assert.Equal(t, []MFADevice{
					{Mask: "xxx-xxx-5309", Type: "phone"},
					{Mask: "t..t@plaid.com", Type: "email"},
				}, c.Devices())
			},
		},
		{
			name: "selections",
			body: `{"type":"selections","mfa":[{"question":"Favorite color?","answers":["red","blue"]}],"access_token":"tok"}`,
			check: func(t *testing.T, c *MFAChallenge) {
				assert.Equal(t, []MFASelection{{Question: "Favorite color?", Answers: []string{"red", "blue"}}}, c.Selections())
			},
		},
		{
			name: "code sent",
			body: `{"type":"device","mfa":{"message":"Code sent to xxx-xxx-5309"},"access_token":"tok"}`,
			check: func(t *testing.T, c *MFAChallenge) {
				assert.Equal(t, "Code sent to xxx-xxx-5309", c.Message())
				assert.Nil(t, c.Questions())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := decodePayload([]byte(tt.body), nil)
			require.NoError(t, err)

			result := payload.Link()
			require.Equal(t, LinkChallenge, result.Kind)
			require.NotNil(t, result.Challenge)
			assert.Equal(t, "tok", result.Challenge.AccessToken)
			tt.check(t, result.Challenge)
		})
	}
}

func TestDecodePayload_LooselyTypedEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    *int
		wantMessage string
		wantToken   string
	}{
		{name: "numeric code", body: `{"code":1205,"message":"locked"}`, wantCode: lo.ToPtr(1205), wantMessage: "locked"},
		{name: "code as string", body: `{"code":"1205","message":"locked"}`, wantCode: lo.ToPtr(1205), wantMessage: "locked"},
		{name: "code not numeric", body: `{"code":"E_LOCKED"}`},
		{name: "null code", body: `{"code":null,"access_token":"tok"}`, wantToken: "tok"},
		{name: "structured message", body: `{"code":1110,"message":{"text":"try later"}}`, wantCode: lo.ToPtr(1110), wantMessage: `{"text":"try later"}`},
		{name: "token of the wrong type", body: `{"access_token":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := &ResponseMeta{StatusCode: http.StatusOK}
			payload, err := decodePayload([]byte(tt.body), meta)
			require.NoError(t, err)

			assert.Same(t, meta, payload.Response)
			assert.Equal(t, tt.wantCode, payload.Code)
			assert.Equal(t, tt.wantMessage, payload.Message)
			assert.Equal(t, tt.wantToken, payload.AccessToken)
		})
	}
}

func TestSubmitMFA(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"access_token":"test_bofa","accounts":[]}`)
	client := newTestClient(t, provider.server.URL)

	payload := client.SubmitMFA(t.Context(), "tomato", bofa, "test_bofa")

	require.NotNil(t, payload)
	assert.Equal(t, LinkAccessToken, payload.Link().Kind)

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/connect/step", req.Path)
	assert.Equal(t, "tomato", req.Body["mfa"])
	assert.Equal(t, "test_bofa", req.Body["access_token"])
	assert.Equal(t, "bofa", req.Body["type"])
	assert.NotContains(t, req.Body, "options")
}

func TestSubmitMFA_SendMethod(t *testing.T) {
	provider := newFakeProvider(t, http.StatusCreated, `{"type":"device","mfa":{"message":"Code sent"},"access_token":"test_bofa"}`)
	client := newTestClient(t, provider.server.URL)

	payload := client.SubmitMFA(t.Context(), "", bofa, "test_bofa", WithSendMethod("type", "phone"))

	require.NotNil(t, payload)
	assert.Equal(t, LinkChallenge, payload.Link().Kind)
	assert.Equal(t, map[string]any{
		"send_method": map[string]any{"type": "phone"},
	}, provider.lastRequest(t).Body["options"])
}

func TestSubmitMFA_Undecodable(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `not json`)
	client := newTestClient(t, provider.server.URL)

	assert.Nil(t, client.SubmitMFA(t.Context(), "tomato", bofa, "test_bofa"))
}

func TestPatchInstitution(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"access_token":"test_bofa"}`)
	client := newTestClient(t, provider.server.URL)

	payload := client.PatchInstitution(t.Context(), "test_bofa", "plaid_test", "plaid_new", "4321")

	require.NotNil(t, payload)
	assert.Equal(t, "test_bofa", payload.AccessToken)

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/connect", req.Path)
	assert.Equal(t, "plaid_test", req.Body["username"])
	assert.Equal(t, "plaid_new", req.Body["password"])
	assert.Equal(t, "4321", req.Body["pin"])
	assert.Equal(t, "test_bofa", req.Body["access_token"])
}

func TestPatchSubmitMFA(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"access_token":"test_bofa"}`)
	client := newTestClient(t, provider.server.URL)

	payload := client.PatchSubmitMFA(t.Context(), "tomato", "test_bofa")

	require.NotNil(t, payload)

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/connect/step", req.Path)
	assert.Equal(t, "tomato", req.Body["mfa"])
	assert.Equal(t, "test_bofa", req.Body["access_token"])
	assert.NotContains(t, req.Body, "type")
}

func TestPatch_Unreachable(t *testing.T) {
	client := newTestClient(t, unreachableURL(t))

	assert.Nil(t, client.PatchInstitution(t.Context(), "tok", "u", "p", ""))
	assert.Nil(t, client.PatchSubmitMFA(t.Context(), "a", "tok"))
}
