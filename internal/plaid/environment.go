package plaid

import (
	"sort"
	"strings"

	"github.com/plaid/plaid-go/v20/plaid"
)

// Environment names a Plaid deployment and derives its connect endpoints.
type Environment struct {
	Name    string
	BaseURL string
}

// Built-in environments.
var (
	Tartan     = Environment{Name: "tartan", BaseURL: "https://tartan.plaid.com"}
	Sandbox    = Environment{Name: "sandbox", BaseURL: string(plaid.Sandbox)}
	Production = Environment{Name: "production", BaseURL: string(plaid.Production)}
)

var environments = map[string]Environment{
	Tartan.Name:     Tartan,
	Sandbox.Name:    Sandbox,
	Production.Name: Production,
}

// LookupEnvironment returns the built-in environment with the given name.
func LookupEnvironment(name string) (Environment, bool) {
	env, ok := environments[strings.ToLower(name)]
	return env, ok
}

// EnvironmentNames lists the built-in environment names in sorted order.
func EnvironmentNames() []string {
	names := make([]string, 0, len(environments))
	for name := range environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithBaseURL returns a copy of the environment pointing at baseURL.
func (e Environment) WithBaseURL(baseURL string) Environment {
	e.BaseURL = strings.TrimRight(baseURL, "/")
	return e
}

// InstitutionsURL is the Plaid institution catalog.
func (e Environment) InstitutionsURL() string { return e.BaseURL + "/institutions" }

// IntuitURL is the long-tail (Intuit) institution catalog.
func (e Environment) IntuitURL() string { return e.BaseURL + "/institutions/longtail" }

// ConnectURL is the connect (login, update, sync) endpoint.
func (e Environment) ConnectURL() string { return e.BaseURL + "/connect" }

// StepURL is the MFA step endpoint.
func (e Environment) StepURL() string { return e.BaseURL + "/connect/step" }
