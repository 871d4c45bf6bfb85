package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/aclindsa/ofxgo"
)

// maxNameLength is the longest NAME an OFX 1.x statement transaction may carry.
const maxNameLength = 32

// unknownBankID fills BANKID when neither a routing number nor an
// institution type is known.
const unknownBankID = "000000000"

// Statement is one account's synced activity to export.
type Statement struct {
	Start        time.Time
	End          time.Time
	Account      model.Account
	Currency     string // ISO 4217, USD when empty
	BankID       string // routing identifier; the institution type when empty
	Transactions []model.Transaction
}

// Writer renders statements as OFX documents that personal finance tools import.
type Writer struct {
	now            func() time.Time
	includePending bool
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithClock sets the server timestamp source.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// WithPending exports pending transactions too. OFX has no notion of a
// pending entry, so they are skipped by default.
func WithPending(include bool) WriterOption {
	return func(w *Writer) {
		w.includePending = include
	}
}

// NewWriter creates an OFX writer producing SGML OFX 1.02.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes stmt and writes it to out. Credit accounts become credit card
// statements, everything else a bank statement.
func (w *Writer) Write(out io.Writer, stmt Statement) (int, error) {
	if stmt.Account.ID == "" {
		return 0, fmt.Errorf("statement account has no ID")
	}

	currencyCode := stmt.Currency
	if currencyCode == "" {
		currencyCode = "USD"
	}
	curDef, err := ofxgo.NewCurrSymbol(currencyCode)
	if err != nil {
		return 0, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}

	transactions := make([]ofxgo.Transaction, 0, len(stmt.Transactions))
	for _, txn := range stmt.Transactions {
		if txn.Pending && !w.includePending {
			continue
		}
		ofxTxn, convErr := convertToOFX(txn)
		if convErr != nil {
			return 0, convErr
		}
		transactions = append(transactions, ofxTxn)
	}

	now := w.now()
	tranList := &ofxgo.TransactionList{
		DtStart:      ofxgo.Date{Time: stmt.Start},
		DtEnd:        ofxgo.Date{Time: stmt.End},
		Transactions: transactions,
	}

	balance, asOf := ledgerBalance(stmt.Account, now)

	resp := ofxgo.Response{
		Version: ofxgo.OfxVersion102,
		Signon: ofxgo.SignonResponse{
			Status:   ofxgo.Status{Code: 0, Severity: "INFO"},
			DtServer: ofxgo.Date{Time: now},
			Language: "ENG",
		},
	}

	if stmt.Account.Type == "credit" {
		resp.CreditCard = append(resp.CreditCard, &ofxgo.CCStatementResponse{
			TrnUID:       ofxgo.UID("1"),
			Status:       ofxgo.Status{Code: 0, Severity: "INFO"},
			CurDef:       *curDef,
			CCAcctFrom:   ofxgo.CCAcct{AcctID: ofxgo.String(stmt.Account.ID)},
			BankTranList: tranList,
			BalAmt:       balance,
			DtAsOf:       asOf,
		})
	} else {
		bankID := stmt.BankID
		if bankID == "" {
			bankID = stmt.Account.InstitutionType
		}
		if bankID == "" {
			bankID = unknownBankID
		}
		resp.Bank = append(resp.Bank, &ofxgo.StatementResponse{
			TrnUID: ofxgo.UID("1"),
			Status: ofxgo.Status{Code: 0, Severity: "INFO"},
			CurDef: *curDef,
			BankAcctFrom: bankAccount(bankID, stmt.Account),
			BankTranList: tranList,
			BalAmt:       balance,
			DtAsOf:       asOf,
		})
	}

	encoded, err := resp.Marshal()
	if err != nil {
		return 0, fmt.Errorf("failed to encode OFX: %w", err)
	}

	if _, err := encoded.WriteTo(out); err != nil {
		return 0, fmt.Errorf("failed to write OFX: %w", err)
	}

	slog.Debug("Wrote OFX statement",
		"account", stmt.Account.ID,
		"transactions", len(transactions),
		"skipped_pending", len(stmt.Transactions)-len(transactions))

	return len(transactions), nil
}

// convertToOFX maps a synced transaction onto an OFX statement entry. Synced
// amounts are positive for money leaving the account; OFX uses the opposite sign.
func convertToOFX(txn model.Transaction) (ofxgo.Transaction, error) {
	var amount ofxgo.Amount
	if _, ok := amount.SetString(strconv.FormatFloat(-txn.Amount, 'f', 2, 64)); !ok {
		return ofxgo.Transaction{}, fmt.Errorf("transaction %s has invalid amount %v", txn.ID, txn.Amount)
	}

	trnType := ofxgo.TrnTypeCredit
	if txn.IsDebit() {
		trnType = ofxgo.TrnTypeDebit
	}

	name := txn.MerchantName
	if name == "" {
		name = txn.Name
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}

	return ofxgo.Transaction{
		TrnType:  trnType,
		DtPosted: ofxgo.Date{Time: txn.Date},
		TrnAmt:   amount,
		FiTID:    ofxgo.String(txn.ID),
		Name:     ofxgo.String(name),
		Memo:     ofxgo.String(txn.CategoryPath()),
	}, nil
}

func ledgerBalance(account model.Account, now time.Time) (ofxgo.Amount, ofxgo.Date) {
	var balance ofxgo.Amount
	if account.Balance.Current != nil {
		balance.SetString(strconv.FormatFloat(*account.Balance.Current, 'f', 2, 64))
	}
	return balance, ofxgo.Date{Time: now}
}

func bankAccount(bankID string, account model.Account) ofxgo.BankAcct {
	acct := ofxgo.BankAcct{
		BankID:   ofxgo.String(bankID),
		AcctID:   ofxgo.String(account.ID),
		AcctType: ofxgo.AcctTypeChecking,
	}
	switch account.Subtype {
	case "savings":
		acct.AcctType = ofxgo.AcctTypeSavings
	case "money market":
		acct.AcctType = ofxgo.AcctTypeMoneyMrkt
	case "cd":
		acct.AcctType = ofxgo.AcctTypeCD
	}
	return acct
}
