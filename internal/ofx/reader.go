// Package ofx writes synced transactions as OFX statements and reads them back.
//
// Written statements invert the synced sign convention since OFX debits are
// negative. ReadStatement restores it so a written statement reads back unchanged.
package ofx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/aclindsa/ofxgo"
)

// ErrNoStatement is returned for a document that parses but holds no statement.
var ErrNoStatement = errors.New("OFX document holds no statement")

// ReadStatement parses a single-statement document such as Writer produces.
// Pending state is not representable in OFX, so every entry reads back settled.
func ReadStatement(r io.Reader) (Statement, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return Statement{}, fmt.Errorf("failed to parse OFX: %w", err)
	}

	if n := len(resp.Bank) + len(resp.CreditCard); n > 1 {
		return Statement{}, fmt.Errorf("OFX document holds %d statements, want 1", n)
	}

	for _, msg := range resp.Bank {
		if s, ok := msg.(*ofxgo.StatementResponse); ok {
			return bankStatement(s), nil
		}
	}
	for _, msg := range resp.CreditCard {
		if s, ok := msg.(*ofxgo.CCStatementResponse); ok {
			return creditCardStatement(s), nil
		}
	}
	return Statement{}, ErrNoStatement
}

func bankStatement(s *ofxgo.StatementResponse) Statement {
	account := model.Account{
		ID:      string(s.BankAcctFrom.AcctID),
		Type:    "depository",
		Subtype: "checking",
	}
	switch s.BankAcctFrom.AcctType {
	case ofxgo.AcctTypeSavings:
		account.Subtype = "savings"
	case ofxgo.AcctTypeMoneyMrkt:
		account.Subtype = "money market"
	case ofxgo.AcctTypeCD:
		account.Subtype = "cd"
	}
	account.Balance.Current = amountOf(&s.BalAmt)

	stmt := Statement{
		Account:  account,
		BankID:   string(s.BankAcctFrom.BankID),
		Currency: s.CurDef.String(),
	}
	readTransactions(&stmt, s.BankTranList)
	return stmt
}

func creditCardStatement(s *ofxgo.CCStatementResponse) Statement {
	account := model.Account{
		ID:   string(s.CCAcctFrom.AcctID),
		Type: "credit",
	}
	account.Balance.Current = amountOf(&s.BalAmt)

	stmt := Statement{
		Account:  account,
		Currency: s.CurDef.String(),
	}
	readTransactions(&stmt, s.BankTranList)
	return stmt
}

func readTransactions(stmt *Statement, list *ofxgo.TransactionList) {
	if list == nil {
		return
	}
	stmt.Start = list.DtStart.Time
	stmt.End = list.DtEnd.Time
	stmt.Transactions = make([]model.Transaction, 0, len(list.Transactions))
	for _, entry := range list.Transactions {
		stmt.Transactions = append(stmt.Transactions, fromOFX(entry, stmt.Account.ID))
	}
}

// fromOFX is the inverse of convertToOFX.
func fromOFX(entry ofxgo.Transaction, accountID string) model.Transaction {
	amount := 0.0
	if v := amountOf(&entry.TrnAmt); v != nil && *v != 0 {
		amount = -*v
	}

	tx := model.Transaction{
		ID:           string(entry.FiTID),
		AccountID:    accountID,
		Date:         entry.DtPosted.Time,
		Name:         string(entry.Name),
		MerchantName: model.CleanMerchantName(string(entry.Name)),
		Amount:       amount,
	}
	if memo := strings.TrimSpace(string(entry.Memo)); memo != "" {
		tx.Category = strings.Split(memo, " > ")
	}
	return tx
}

func amountOf(a *ofxgo.Amount) *float64 {
	v, _ := a.Float64()
	return &v
}
