package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the provider's calendar date format.
const DateLayout = "2006-01-02"

// Location is where a transaction took place, when the provider knows it.
type Location struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// Transaction represents a single transaction returned by a sync.
type Transaction struct {
	Date         time.Time `json:"date"`
	Location     Location  `json:"location"`
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`          // Raw transaction description
	MerchantName string    `json:"merchant_name"` // Cleaned merchant name
	CategoryID   string    `json:"category_id,omitempty"`
	Type         string    `json:"type,omitempty"` // Primary transaction type (place, digital, special, unresolved)
	Category     []string  `json:"category,omitempty"`
	Amount       float64   `json:"amount"`
	Pending      bool      `json:"pending"`
}

// IsDebit reports whether money left the account. Positive provider amounts are debits.
func (t Transaction) IsDebit() bool {
	return t.Amount > 0
}

// CategoryPath joins the category hierarchy for display.
func (t Transaction) CategoryPath() string {
	return strings.Join(t.Category, " > ")
}

// DecodeTransaction builds a Transaction from one provider transaction entry.
// Like DecodeAccount, unreadable fields are left empty and reported in the
// error while the rest of the entry is kept.
func DecodeTransaction(data []byte) (Transaction, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	var d fieldDecoder
	meta := d.nested(obj, "meta")
	kind := d.nested(obj, "type")

	tx := Transaction{
		ID:         field[string](&d, obj, "_id"),
		AccountID:  field[string](&d, obj, "_account"),
		Name:       field[string](&d, obj, "name"),
		Amount:     orZero(d.amount(obj, "amount")),
		Pending:    field[bool](&d, obj, "pending"),
		Category:   field[[]string](&d, obj, "category"),
		CategoryID: field[string](&d, obj, "category_id"),
		Type:       field[string](&d, kind, "primary"),
		Location:   field[Location](&d, meta, "location"),
	}
	tx.MerchantName = CleanMerchantName(tx.Name)

	if date := field[string](&d, obj, "date"); date != "" {
		parsed, err := time.Parse(DateLayout, date)
		if err != nil {
			d.errs = append(d.errs, fmt.Errorf("field \"date\": %w", err))
		} else {
			tx.Date = parsed
		}
	}

	return tx, d.err("transaction", tx.ID)
}
