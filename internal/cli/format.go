package cli

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/Veraticus/plaid-connect/internal/model"
)

// DefaultCurrency is used when an account does not report one.
const DefaultCurrency = "USD"

// ToMoney converts a decimal amount into minor units of the currency.
func ToMoney(amount float64, currency string) *money.Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	minor := math.Round(amount * math.Pow10(fraction))
	return money.New(int64(minor), currency)
}

// FormatMoney renders an amount with its currency symbol, e.g. "$1,234.50".
func FormatMoney(amount float64, currency string) string {
	return ToMoney(amount, currency).Display()
}

// FormatBalance renders an optional balance.
func FormatBalance(balance *float64, currency string) string {
	if balance == nil {
		return "n/a"
	}
	return FormatMoney(*balance, currency)
}

// FormatTransactionAmount renders a synced amount from the account holder's
// point of view: debits negative, credits positive.
func FormatTransactionAmount(txn model.Transaction, currency string) string {
	display := FormatMoney(-txn.Amount, currency)
	if txn.IsDebit() {
		return DebitStyle.Render(display)
	}
	return CreditStyle.Render("+" + display)
}
