package reports

import (
	"sort"
	"time"
)

// TrialBalanceRow is one account's totals on the trial balance.
type TrialBalanceRow struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	AccountType string `json:"account_type"`
	Debits      int64  `json:"debits"`
	Credits     int64  `json:"credits"`
}

// TrialBalance lists every account with movement in the window.
type TrialBalance struct {
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  int64             `json:"total_debits"`
	TotalCredits int64             `json:"total_credits"`
	IsBalanced   bool              `json:"is_balanced"`
}

// BuildTrialBalance folds account balances into a trial balance, ordered
// by account code.
func BuildTrialBalance(balances []AccountBalance, start, end time.Time) TrialBalance {
	tb := TrialBalance{Start: start, End: end}
	for _, b := range balances {
		if b.Debits == 0 && b.Credits == 0 {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			AccountCode: b.AccountCode,
			AccountName: b.AccountName,
			AccountType: b.AccountType,
			Debits:      b.Debits,
			Credits:     b.Credits,
		})
		tb.TotalDebits += b.Debits
		tb.TotalCredits += b.Credits
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].AccountCode < tb.Rows[j].AccountCode })
	tb.IsBalanced = tb.TotalDebits == tb.TotalCredits
	return tb
}
