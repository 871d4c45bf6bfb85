package cli

import (
	"testing"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		want     string
		amount   float64
	}{
		{name: "dollars", amount: 1234.5, currency: "USD", want: "$1,234.50"},
		{name: "default currency", amount: 4.75, want: "$4.75"},
		{name: "negative", amount: -120.1, currency: "USD", want: "-$120.10"},
		{name: "rounds to cents", amount: 0.005, currency: "USD", want: "$0.01"},
		{name: "zero fraction currency", amount: 1500, currency: "JPY", want: "¥1,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.amount, tt.currency))
		})
	}
}

func TestFormatBalance(t *testing.T) {
	current := 1804.56
	assert.Equal(t, "$1,804.56", FormatBalance(&current, ""))
	assert.Equal(t, "n/a", FormatBalance(nil, "USD"))
}

func TestFormatTransactionAmount(t *testing.T) {
	debit := model.Transaction{Amount: 4.75}
	credit := model.Transaction{Amount: -120.10}

	assert.Contains(t, FormatTransactionAmount(debit, "USD"), "-$4.75")
	assert.Contains(t, FormatTransactionAmount(credit, "USD"), "+$120.10")
}
