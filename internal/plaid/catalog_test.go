package plaid

import (
	"net/http"
	"testing"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plaidCatalog = `[
	{"id":"5301a93ac140de84910000e0","name":"Bank of America","type":"bofa","has_mfa":true,
	 "mfa":["code","list","questions(3)"],
	 "credentials":{"username":"Online ID","password":"Password","pin":"PIN"},
	 "products":["connect","auth"]},
	{"name":"No Identifier"},
	{"id":"5301a9d704977c52b60000db","name":"Chase","type":"chase","has_mfa":true,
	 "credentials":{"username":"User ID","password":"Password"},
	 "products":["connect"]}
]`

func TestListInstitutions(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, plaidCatalog)
	client := newTestClient(t, provider.server.URL)

	list := client.ListInstitutions(t.Context())

	require.NotNil(t, list.Response)
	assert.Equal(t, http.StatusOK, list.Response.StatusCode)
	require.Len(t, list.Institutions, 2, "entries without an id are skipped")

	bofa := list.Institutions[0]
	assert.Equal(t, "5301a93ac140de84910000e0", bofa.ID)
	assert.Equal(t, "Bank of America", bofa.Name)
	assert.Equal(t, "bofa", bofa.Type)
	assert.Equal(t, model.SourcePlaid, bofa.Source)
	assert.True(t, bofa.RequiresPIN())
	assert.True(t, bofa.SupportsProduct("auth"))

	chase := list.Institutions[1]
	assert.Equal(t, "chase", chase.Type)
	assert.False(t, chase.RequiresPIN())

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/institutions", req.Path)
}

func TestListInstitutions_Failures(t *testing.T) {
	tests := []struct {
		name    string
		baseURL func(t *testing.T) string
	}{
		{
			name: "undecodable body",
			baseURL: func(t *testing.T) string {
				return newFakeProvider(t, http.StatusOK, "<html>maintenance</html>").server.URL
			},
		},
		{
			name: "object instead of list",
			baseURL: func(t *testing.T) string {
				return newFakeProvider(t, http.StatusInternalServerError, `{"code":1300,"message":"internal"}`).server.URL
			},
		},
		{
			name:    "provider unreachable",
			baseURL: unreachableURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.baseURL(t))

			list := client.ListInstitutions(t.Context())

			assert.Nil(t, list.Response)
			assert.NotNil(t, list.Institutions)
			assert.Empty(t, list.Institutions)
		})
	}
}

func TestListIntuitInstitutions(t *testing.T) {
	body := `{"results":[
		{"id":"100000","name":"Ally Bank","fields":[{"name":"username","label":"Login ID"},{"name":"password","label":"Password"}],
		 "mfa":["questions(1)"],"products":{"connect":true,"auth":false}},
		{"id":"100001","name":"First Community Credit Union","type":"fccu","products":["connect"]}
	]}`
	provider := newFakeProvider(t, http.StatusOK, body)
	client := newTestClient(t, provider.server.URL)

	list := client.ListIntuitInstitutions(t.Context(), 50, 100)

	require.NotNil(t, list.Response)
	require.Len(t, list.Institutions, 2)

	ally := list.Institutions[0]
	assert.Equal(t, "100000", ally.ID)
	assert.Equal(t, "100000", ally.Type, "type falls back to the id")
	assert.Equal(t, model.SourceIntuit, ally.Source)
	assert.True(t, ally.HasMFA)
	assert.Equal(t, []string{"connect"}, ally.Products)
	assert.Equal(t, "Login ID", ally.Credentials.Username)

	assert.Equal(t, "fccu", list.Institutions[1].Type)

	req := provider.lastRequest(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/institutions/longtail", req.Path)
	assert.Equal(t, "test-client-id", req.Body["client_id"])
	assert.Equal(t, "test-secret", req.Body["secret"])
	assert.Equal(t, "50", req.Body["count"])
	assert.Equal(t, "100", req.Body["offset"])
}

func TestListIntuitInstitutions_PassesBoundsThrough(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"results":[]}`)
	client := newTestClient(t, provider.server.URL)

	list := client.ListIntuitInstitutions(t.Context(), -1, 0)

	require.NotNil(t, list.Response)
	assert.Empty(t, list.Institutions)
	assert.Equal(t, "-1", provider.lastRequest(t).Body["count"])
}

func TestListIntuitInstitutions_MissingResults(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{"code":1100,"message":"invalid client_id"}`)
	client := newTestClient(t, provider.server.URL)

	list := client.ListIntuitInstitutions(t.Context(), 10, 0)

	assert.Nil(t, list.Response)
	assert.Empty(t, list.Institutions)
}

func TestPlaidAndIntuitInstitutionsStayDistinct(t *testing.T) {
	provider := newScriptedProvider(t, func(_ int, r *http.Request) (int, string) {
		if r.URL.Path == "/institutions/longtail" {
			return http.StatusOK, `{"results":[{"id":"200","name":"Bank of America"}]}`
		}
		return http.StatusOK, `[{"id":"100","name":"Bank of America","type":"bofa"}]`
	})
	client := newTestClient(t, provider.server.URL)

	plaidList := client.ListInstitutions(t.Context())
	intuitList := client.ListIntuitInstitutions(t.Context(), 1, 0)

	require.Len(t, plaidList.Institutions, 1)
	require.Len(t, intuitList.Institutions, 1)
	assert.Equal(t, plaidList.Institutions[0].Name, intuitList.Institutions[0].Name)
	assert.NotEqual(t, plaidList.Institutions[0], intuitList.Institutions[0])
}

func TestGetInstitution(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		provider := newFakeProvider(t, http.StatusOK, `{"id":"abc 1","name":"Wells Fargo","type":"wells"}`)
		client := newTestClient(t, provider.server.URL)

		result := client.GetInstitution(t.Context(), "abc 1")

		require.NotNil(t, result.Institution)
		require.NotNil(t, result.Response)
		assert.Equal(t, "wells", result.Institution.Type)
		assert.Equal(t, "/institutions/abc 1", provider.lastRequest(t).Path)
	})

	t.Run("not found keeps response", func(t *testing.T) {
		provider := newFakeProvider(t, http.StatusNotFound, `{"code":1301,"message":"institution not found"}`)
		client := newTestClient(t, provider.server.URL)

		result := client.GetInstitution(t.Context(), "missing")

		assert.Nil(t, result.Institution)
		require.NotNil(t, result.Response)
		assert.Equal(t, http.StatusNotFound, result.Response.StatusCode)
	})

	t.Run("unreachable", func(t *testing.T) {
		client := newTestClient(t, unreachableURL(t))

		result := client.GetInstitution(t.Context(), "abc")

		assert.Nil(t, result.Institution)
		assert.Nil(t, result.Response)
	})
}
