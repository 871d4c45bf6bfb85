package plaid

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const januaryBody = `{
	"access_token":"test_bofa",
	"accounts":[
		{"_id":"acct1","_item":"item1","_user":"user1","type":"depository","subtype":"checking",
		 "balance":{"available":1203.42,"current":1274.93},
		 "meta":{"name":"Plaid Checking","number":"9606"},"institution_type":"bofa"},
		{"_id":"acct2","type":"credit","meta":{"name":"Plaid Credit Card","number":"3002"}}
	],
	"transactions":[
		{"_id":"tx1","_account":"acct1","amount":12.5,"date":"2024-01-03","name":"SQ *BLUE BOTTLE COFFEE","category":["Food and Drink","Coffee Shop"],"type":{"primary":"place"},"pending":false},
		{"_id":"tx2","_account":"acct1","amount":-2500,"date":"2024-01-15","name":"PAYROLL DEPOSIT","type":{"primary":"special"}},
		{"_id":"tx3","_account":"acct1","amount":89.99,"date":"2024-01-28","name":"AMAZON.COM*AB12CD","pending":true}
	]
}`

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return &d
}

func TestDownload_JanuaryRange(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, januaryBody)
	client := newTestClient(t, provider.server.URL)

	outcome := client.Download(t.Context(), "test_bofa", "acct1", false, date(t, "2024-01-01"), date(t, "2024-01-31"))

	require.Equal(t, OutcomeData, outcome.Kind)
	require.NotNil(t, outcome.Account)
	assert.Equal(t, "acct1", outcome.Account.ID, "only the first account is surfaced")
	assert.Equal(t, "Plaid Checking", outcome.Account.Name)
	require.NotNil(t, outcome.Account.Balance.Available)
	assert.InDelta(t, 1203.42, *outcome.Account.Balance.Available, 0.001)

	require.Len(t, outcome.Transactions, 3)
	assert.Equal(t, "tx1", outcome.Transactions[0].ID)
	assert.Equal(t, "tx2", outcome.Transactions[1].ID)
	assert.Equal(t, "tx3", outcome.Transactions[2].ID)
	assert.True(t, outcome.Transactions[2].Pending)
	assert.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Response)
	assert.Equal(t, http.StatusOK, outcome.Response.StatusCode)

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/connect", req.Path)
	assert.Equal(t, "test-client-id", req.Query.Get("client_id"))
	assert.Equal(t, "test-secret", req.Query.Get("secret"))
	assert.Equal(t, "test_bofa", req.Query.Get("access_token"))
	assert.Equal(t, "acct1", req.Query.Get("options[account]"))
	assert.Equal(t, "0", req.Query.Get("options[pending]"))
	assert.Equal(t, "2024-01-01", req.Query.Get("options[gte]"))
	assert.Equal(t, "2024-01-31", req.Query.Get("options[lte]"))
}

func TestDownload_OmitsOpenBounds(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, januaryBody)
	client := newTestClient(t, provider.server.URL)

	client.Download(t.Context(), "test_bofa", "", true, nil, nil)

	req := provider.lastRequest(t)
	assert.Equal(t, "1", req.Query.Get("options[pending]"))
	assert.NotContains(t, req.Query, "options[gte]")
	assert.NotContains(t, req.Query, "options[lte]")
}

func TestDownload_NotConnectedCodes(t *testing.T) {
	for code := 1200; code <= 1209; code++ {
		t.Run(fmt.Sprintf("code %d", code), func(t *testing.T) {
			// Data alongside the code must not be surfaced.
			body := fmt.Sprintf(`{"code":%d,"message":"item not connected","resolve":"patch the item",
				"accounts":[{"_id":"acct1"}],"transactions":[{"_id":"tx1","date":"2024-01-03"}]}`, code)
			provider := newFakeProvider(t, http.StatusPaymentRequired, body)
			client := newTestClient(t, provider.server.URL)

			outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

			assert.Equal(t, OutcomeNotConnected, outcome.Kind)
			assert.Equal(t, code, outcome.Code)
			assert.Nil(t, outcome.Account)
			assert.Empty(t, outcome.Transactions)

			require.Error(t, outcome.Err)
			assert.ErrorIs(t, outcome.Err, ErrNotConnected)
			assert.NotErrorIs(t, outcome.Err, ErrLocked)

			var syncErr *SyncError
			require.ErrorAs(t, outcome.Err, &syncErr)
			assert.Equal(t, "test_bofa", syncErr.AccessToken)
			require.NotNil(t, syncErr.Provider)
			assert.Equal(t, code, syncErr.Provider.Code)
		})
	}
}

func TestDownload_OtherCodesAreIndeterminate(t *testing.T) {
	for _, code := range []int{0, 1100, 1199, 1210, 1300, 1600} {
		t.Run(fmt.Sprintf("code %d", code), func(t *testing.T) {
			body := fmt.Sprintf(`{"code":%d,"message":"something else","accounts":[{"_id":"acct1"}],"transactions":[]}`, code)
			provider := newFakeProvider(t, http.StatusBadRequest, body)
			client := newTestClient(t, provider.server.URL)

			outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

			assert.Equal(t, OutcomeIndeterminate, outcome.Kind)
			assert.Equal(t, code, outcome.Code)
			assert.NoError(t, outcome.Err)
			assert.Nil(t, outcome.Account)
			assert.NotNil(t, outcome.Response)
		})
	}
}

func TestDownload_Empty(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantResponse bool
	}{
		{name: "no accounts", body: `{"accounts":[],"transactions":[{"_id":"tx1"}]}`, wantResponse: true},
		{name: "no transactions field", body: `{"accounts":[{"_id":"acct1"}]}`, wantResponse: true},
		{name: "empty object", body: `{}`, wantResponse: true},
		{name: "unparseable", body: `{"accounts":[`, wantResponse: false},
		{name: "html", body: `<html>oops</html>`, wantResponse: false},
		{name: "array", body: `[]`, wantResponse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(t, http.StatusOK, tt.body)
			client := newTestClient(t, provider.server.URL)

			outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

			assert.Equal(t, OutcomeEmpty, outcome.Kind)
			assert.NoError(t, outcome.Err)
			assert.Nil(t, outcome.Account)
			if tt.wantResponse {
				assert.NotNil(t, outcome.Response)
			} else {
				assert.Nil(t, outcome.Response)
				assert.Nil(t, outcome.Payload)
			}
		})
	}
}

func TestDownload_EmptyTransactionListIsData(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"accounts":[{"_id":"acct1"}],"transactions":[]}`)
	client := newTestClient(t, provider.server.URL)

	outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

	assert.Equal(t, OutcomeData, outcome.Kind)
	assert.Empty(t, outcome.Transactions)
	require.NotNil(t, outcome.Account)
}

func TestDownload_KeepsLooselyTypedEntries(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantIDs     []string
		wantAmounts []float64
		wantAccount string
		wantCurrent *float64
	}{
		{
			name: "amount sent as string",
			body: `{"accounts":[{"_id":"acct1"}],"transactions":[
				{"_id":"tx1","amount":12.5},{"_id":"tx2","amount":"4.00"},{"_id":"tx3","amount":1}]}`,
			wantIDs:     []string{"tx1", "tx2", "tx3"},
			wantAmounts: []float64{12.5, 4, 1},
			wantAccount: "acct1",
		},
		{
			name: "unparseable date and amount leave zero values",
			body: `{"accounts":[{"_id":"acct1"}],"transactions":[
				{"_id":"tx1","date":"2024-01-03","amount":2},
				{"_id":"tx2","date":"January 4th","amount":{"value":3}},
				{"_id":"tx3","date":"2024-01-05","amount":5}]}`,
			wantIDs:     []string{"tx1", "tx2", "tx3"},
			wantAmounts: []float64{2, 0, 5},
			wantAccount: "acct1",
		},
		{
			name:        "balance sent as string",
			body:        `{"accounts":[{"_id":"acct1","balance":{"current":"100.00"}}],"transactions":[{"_id":"tx1","amount":1}]}`,
			wantIDs:     []string{"tx1"},
			wantAmounts: []float64{1},
			wantAccount: "acct1",
			wantCurrent: func() *float64 { v := 100.0; return &v }(),
		},
		{
			name:        "account with wrongly typed name",
			body:        `{"accounts":[{"_id":"acct1","meta":{"name":42}}],"transactions":[{"_id":"tx1","amount":1}]}`,
			wantIDs:     []string{"tx1"},
			wantAmounts: []float64{1},
			wantAccount: "acct1",
		},
		{
			name:        "account entry that is not an object",
			body:        `{"accounts":["acct1"],"transactions":[{"_id":"tx1","amount":1}]}`,
			wantIDs:     []string{"tx1"},
			wantAmounts: []float64{1},
			wantAccount: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(t, http.StatusOK, tt.body)
			client := newTestClient(t, provider.server.URL)

			outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

			require.Equal(t, OutcomeData, outcome.Kind)
			require.NotNil(t, outcome.Account)
			assert.Equal(t, tt.wantAccount, outcome.Account.ID)
			if tt.wantCurrent != nil {
				require.NotNil(t, outcome.Account.Balance.Current)
				assert.InDelta(t, *tt.wantCurrent, *outcome.Account.Balance.Current, 0.001)
			}

			require.Len(t, outcome.Transactions, len(tt.wantIDs))
			for i, tx := range outcome.Transactions {
				assert.Equal(t, tt.wantIDs[i], tx.ID)
				assert.InDelta(t, tt.wantAmounts[i], tx.Amount, 0.001)
			}
		})
	}
}

func TestDownload_StringCodeIsStillAnAnswer(t *testing.T) {
	provider := newFakeProvider(t, http.StatusPaymentRequired, `{"code":"1205","message":"account locked","resolve":"unlock it"}`)
	client := newTestClient(t, provider.server.URL)

	outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

	assert.Equal(t, OutcomeNotConnected, outcome.Kind)
	assert.Equal(t, 1205, outcome.Code)
	require.NotNil(t, outcome.Response)
	assert.Equal(t, http.StatusPaymentRequired, outcome.Response.StatusCode)

	var syncErr *SyncError
	require.ErrorAs(t, outcome.Err, &syncErr)
	require.NotNil(t, syncErr.Provider)
	assert.Equal(t, "account locked", syncErr.Provider.Message)
}

func TestDownload_Unreachable(t *testing.T) {
	client := newTestClient(t, unreachableURL(t))

	outcome := client.Download(t.Context(), "test_bofa", "", false, nil, nil)

	assert.Equal(t, OutcomeEmpty, outcome.Kind)
	assert.Nil(t, outcome.Response)
}

func TestSyncKind_String(t *testing.T) {
	assert.Equal(t, "empty", OutcomeEmpty.String())
	assert.Equal(t, "data", OutcomeData.String())
	assert.Equal(t, "not_connected", OutcomeNotConnected.String())
	assert.Equal(t, "indeterminate", OutcomeIndeterminate.String())
}
