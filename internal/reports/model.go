package reports

// AccountBalance is the aggregated movement of one GL account over a
// reporting window. Amounts are integer minor units.
type AccountBalance struct {
	AccountCode   string
	AccountName   string
	AccountType   string
	NormalBalance string
	Debits        int64
	Credits       int64
}

// Net returns the balance signed by the account's normal side: a debit
// account nets debits minus credits, a credit account the opposite.
func (b AccountBalance) Net() int64 {
	if b.NormalBalance == "CREDIT" {
		return b.Credits - b.Debits
	}
	return b.Debits - b.Credits
}

// balanceTolerance is the rounding slack, in minor units, allowed when
// deciding whether a statement balances.
const balanceTolerance = 1
