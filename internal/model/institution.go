package model

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// InstitutionSource identifies which upstream catalog an institution came from.
type InstitutionSource string

// Catalog sources.
const (
	SourcePlaid  InstitutionSource = "plaid"
	SourceIntuit InstitutionSource = "intuit"
)

// CredentialFields holds the display label for each credential an institution
// asks for. An empty label means the field is not required.
type CredentialFields struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	PIN      string `json:"pin,omitempty"`
}

// Institution is a financial institution a user can link an account with.
// Institutions with the same name from different sources are distinct.
type Institution struct {
	Credentials CredentialFields  `json:"credentials"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Source      InstitutionSource `json:"source"`
	MFA         []string          `json:"mfa,omitempty"`
	Products    []string          `json:"products,omitempty"`
	HasMFA      bool              `json:"has_mfa"`
}

// RequiresUsername reports whether the institution asks for a username.
func (i Institution) RequiresUsername() bool { return i.Credentials.Username != "" }

// RequiresPassword reports whether the institution asks for a password.
func (i Institution) RequiresPassword() bool { return i.Credentials.Password != "" }

// RequiresPIN reports whether the institution asks for a PIN.
func (i Institution) RequiresPIN() bool { return i.Credentials.PIN != "" }

// SupportsProduct reports whether the institution lists the given product.
func (i Institution) SupportsProduct(product string) bool {
	return lo.Contains(i.Products, product)
}

// plaidInstitution is the shape of an entry in Plaid's own catalog.
type plaidInstitution struct {
	Credentials CredentialFields `json:"credentials"`
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	MFA         []string         `json:"mfa"`
	Products    []string         `json:"products"`
	HasMFA      bool             `json:"has_mfa"`
}

// intuitField describes one login field of a long-tail institution.
type intuitField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// intuitInstitution is the shape of an entry in the Intuit long-tail catalog.
type intuitInstitution struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Products json.RawMessage `json:"products"`
	MFA      []string        `json:"mfa"`
	Fields   []intuitField   `json:"fields"`
	HasMFA   bool            `json:"has_mfa"`
}

// DecodeInstitution builds an Institution from one catalog entry of the given source.
func DecodeInstitution(data []byte, source InstitutionSource) (Institution, error) {
	switch source {
	case SourcePlaid:
		return decodePlaidInstitution(data)
	case SourceIntuit:
		return decodeIntuitInstitution(data)
	default:
		return Institution{}, fmt.Errorf("unknown institution source %q", source)
	}
}

func decodePlaidInstitution(data []byte) (Institution, error) {
	var raw plaidInstitution
	if err := json.Unmarshal(data, &raw); err != nil {
		return Institution{}, fmt.Errorf("failed to decode plaid institution: %w", err)
	}
	if raw.ID == "" {
		return Institution{}, fmt.Errorf("plaid institution has no id")
	}

	return Institution{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        raw.Type,
		Credentials: raw.Credentials,
		HasMFA:      raw.HasMFA,
		MFA:         raw.MFA,
		Products:    raw.Products,
		Source:      SourcePlaid,
	}, nil
}

func decodeIntuitInstitution(data []byte) (Institution, error) {
	var raw intuitInstitution
	if err := json.Unmarshal(data, &raw); err != nil {
		return Institution{}, fmt.Errorf("failed to decode intuit institution: %w", err)
	}
	if raw.ID == "" {
		return Institution{}, fmt.Errorf("intuit institution has no id")
	}

	var creds CredentialFields
	for _, field := range raw.Fields {
		switch field.Name {
		case "username":
			creds.Username = field.Label
		case "password":
			creds.Password = field.Label
		case "pin":
			creds.PIN = field.Label
		}
	}

	// Long-tail entries often omit the type slug; the id is what the
	// connect endpoint expects for them.
	instType := raw.Type
	if instType == "" {
		instType = raw.ID
	}

	return Institution{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        instType,
		Credentials: creds,
		HasMFA:      raw.HasMFA || len(raw.MFA) > 0,
		MFA:         raw.MFA,
		Products:    decodeProducts(raw.Products),
		Source:      SourceIntuit,
	}, nil
}

// decodeProducts accepts either a list of product names or an object of
// product flags, as the long-tail catalog has shipped both.
func decodeProducts(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}

	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil
	}

	products := lo.Keys(lo.PickBy(flags, func(_ string, enabled bool) bool { return enabled }))
	slices.Sort(products)
	return products
}
