package ofx

import (
	"strings"
	"testing"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

`

const signon = `<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20140201080000.000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
`

const savingsStatement = `<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>021000021
<ACCTID>acct_savings
<ACCTTYPE>SAVINGS
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20140101000000.000[0:GMT]
<DTEND>20140131000000.000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20140103000000.000[0:GMT]
<TRNAMT>-42.17
<FITID>txn_hardware
<NAME>CORNER HARDWARE LLC
<MEMO>Shops > Hardware Store
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20140115000000.000[0:GMT]
<TRNAMT>2500.00
<FITID>txn_payroll
<NAME>PAYROLL DEPOSIT
<MEMO>Transfer
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>3120.44
<DTASOF>20140201080000.000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
`

func document(body string) string {
	return ofxHeader + "<OFX>\n" + signon + body + "</OFX>\n"
}

func TestReadStatement_Bank(t *testing.T) {
	stmt, err := ReadStatement(strings.NewReader(document("<BANKMSGSRSV1>\n" + savingsStatement + "</BANKMSGSRSV1>\n")))
	require.NoError(t, err)

	assert.Equal(t, "acct_savings", stmt.Account.ID)
	assert.Equal(t, "depository", stmt.Account.Type)
	assert.Equal(t, "savings", stmt.Account.Subtype)
	assert.Equal(t, "021000021", stmt.BankID)
	assert.Equal(t, "USD", stmt.Currency)
	require.NotNil(t, stmt.Account.Balance.Current)
	assert.InDelta(t, 3120.44, *stmt.Account.Balance.Current, 0.001)
	assert.Equal(t, "2014-01-01", stmt.Start.Format(model.DateLayout))
	assert.Equal(t, "2014-01-31", stmt.End.Format(model.DateLayout))

	require.Len(t, stmt.Transactions, 2)

	hardware := stmt.Transactions[0]
	assert.Equal(t, "txn_hardware", hardware.ID)
	assert.Equal(t, "acct_savings", hardware.AccountID)
	assert.InDelta(t, 42.17, hardware.Amount, 0.001)
	assert.True(t, hardware.IsDebit())
	assert.Equal(t, "Corner Hardware", hardware.MerchantName)
	assert.Equal(t, []string{"Shops", "Hardware Store"}, hardware.Category)
	assert.Equal(t, "2014-01-03", hardware.Date.Format(model.DateLayout))

	payroll := stmt.Transactions[1]
	assert.InDelta(t, -2500.0, payroll.Amount, 0.001)
	assert.False(t, payroll.IsDebit())
	assert.Equal(t, []string{"Transfer"}, payroll.Category)
}

func TestReadStatement_CreditCard(t *testing.T) {
	body := `<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>acct_card
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20140101000000.000[0:GMT]
<DTEND>20140131000000.000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20140120000000.000[0:GMT]
<TRNAMT>-31.02
<FITID>txn_gas
<NAME>GAS STATION
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-512.10
<DTASOF>20140201080000.000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
`
	stmt, err := ReadStatement(strings.NewReader(document(body)))
	require.NoError(t, err)

	assert.Equal(t, "acct_card", stmt.Account.ID)
	assert.Equal(t, "credit", stmt.Account.Type)
	assert.Empty(t, stmt.BankID)
	require.Len(t, stmt.Transactions, 1)
	assert.InDelta(t, 31.02, stmt.Transactions[0].Amount, 0.001)
	assert.Nil(t, stmt.Transactions[0].Category)
}

func TestReadStatement_Errors(t *testing.T) {
	tests := []struct {
		wantIs  error
		name    string
		data    string
		wantMsg string
	}{
		{name: "not OFX", data: "Date,Amount\n2024-01-01,5.00"},
		{name: "empty", data: ""},
		{name: "no statement", data: document(""), wantIs: ErrNoStatement},
		{
			name:    "two statements",
			data:    document("<BANKMSGSRSV1>\n" + savingsStatement + savingsStatement + "</BANKMSGSRSV1>\n"),
			wantMsg: "2 statements",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStatement(strings.NewReader(tt.data))
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
