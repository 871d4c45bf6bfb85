package model

import (
	"fmt"
)

// Balance is an account balance snapshot. Either side may be unknown.
type Balance struct {
	Available *float64 `json:"available"`
	Current   *float64 `json:"current"`
}

// Account is an account snapshot returned alongside transactions.
// It is rebuilt on every sync and never cached.
type Account struct {
	Balance         Balance `json:"balance"`
	ID              string  `json:"id"`
	ItemID          string  `json:"item_id,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
	Name            string  `json:"name"`
	Number          string  `json:"number,omitempty"`
	Type            string  `json:"type"`
	Subtype         string  `json:"subtype,omitempty"`
	InstitutionType string  `json:"institution_type,omitempty"`
}

// DisplayName returns the account name with its masked number when known.
func (a Account) DisplayName() string {
	if a.Number == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (…%s)", a.Name, a.Number)
}

// DecodeAccount builds an Account from one provider account entry. Fields
// with unexpected types are left empty and reported in the error, which is
// non-nil alongside a usable Account. Only an entry that is not a JSON object
// yields an empty Account.
func DecodeAccount(data []byte) (Account, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Account{}, fmt.Errorf("failed to decode account: %w", err)
	}

	var d fieldDecoder
	meta := d.nested(obj, "meta")
	balance := d.nested(obj, "balance")

	acct := Account{
		ID:              field[string](&d, obj, "_id"),
		ItemID:          field[string](&d, obj, "_item"),
		UserID:          field[string](&d, obj, "_user"),
		Name:            field[string](&d, meta, "name"),
		Number:          field[string](&d, meta, "number"),
		Type:            field[string](&d, obj, "type"),
		Subtype:         field[string](&d, obj, "subtype"),
		InstitutionType: field[string](&d, obj, "institution_type"),
		Balance: Balance{
			Available: d.amount(balance, "available"),
			Current:   d.amount(balance, "current"),
		},
	}
	return acct, d.err("account", acct.ID)
}
