package testutil

import (
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// BankOfAmerica is a sandbox institution with MFA and no PIN.
func BankOfAmerica() model.Institution {
	return model.Institution{
		ID:          "5301a93ac140de84910000e0",
		Name:        "Bank of America",
		Type:        "bofa",
		Credentials: model.CredentialFields{Username: "Online ID", Password: "Password"},
		HasMFA:      true,
		MFA:         []string{"code", "list", "questions(3)"},
		Products:    []string{"connect", "auth"},
		Source:      model.SourcePlaid,
	}
}

// Chase is a sandbox institution without MFA.
func Chase() model.Institution {
	return model.Institution{
		ID:          "5301a9d704977c52b60000db",
		Name:        "Chase",
		Type:        "chase",
		Credentials: model.CredentialFields{Username: "User ID", Password: "Password"},
		Products:    []string{"connect"},
		Source:      model.SourcePlaid,
	}
}

// USBank requires a PIN in addition to username and password.
func USBank() model.Institution {
	return model.Institution{
		ID:          "5301a9ff94bf8d5f14000032",
		Name:        "US Bank",
		Type:        "us",
		Credentials: model.CredentialFields{Username: "Personal ID", Password: "Password", PIN: "PIN"},
		HasMFA:      true,
		MFA:         []string{"questions(3)"},
		Source:      model.SourcePlaid,
	}
}

// CheckingAccount is a depository account with a known current balance.
func CheckingAccount() model.Account {
	current := 1804.56
	return model.Account{
		ID:              "acct_checking",
		Name:            "Plaid Checking",
		Number:          "9606",
		Type:            "depository",
		Subtype:         "checking",
		InstitutionType: "bofa",
		Balance:         model.Balance{Current: &current},
	}
}

// Date parses a calendar date and panics on malformed input.
func Date(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// CheckingTransactions are settled activity for CheckingAccount: one debit
// and one credit.
func CheckingTransactions() []model.Transaction {
	return []model.Transaction{
		{
			ID:           "txn_coffee",
			AccountID:    "acct_checking",
			Date:         Date("2014-01-02"),
			Name:         "SQ *BLUE BOTTLE COFFEE",
			MerchantName: "Blue Bottle Coffee",
			Amount:       4.75,
			Category:     []string{"Food and Drink", "Coffee Shop"},
		},
		{
			ID:        "txn_payroll",
			AccountID: "acct_checking",
			Date:      Date("2014-01-15"),
			Name:      "Payroll",
			Amount:    -2500,
		},
	}
}

// PendingTransaction is an unsettled debit on CheckingAccount.
func PendingTransaction() model.Transaction {
	return model.Transaction{
		ID:        "txn_pending",
		AccountID: "acct_checking",
		Date:      Date("2014-01-20"),
		Name:      "Gas Station",
		Amount:    31.02,
		Pending:   true,
	}
}
