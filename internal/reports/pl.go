package reports

import (
	"sort"
	"time"
)

// categoryBuckets groups revenue accounts into named fee streams by code
// prefix. Unmatched codes fall into "Other income".
var categoryBuckets = []struct {
	Prefix string
	Name   string
}{
	{"40", "Tuition"},
	{"41", "Boarding"},
	{"42", "Grants"},
	{"43", "Transport"},
	{"44", "Activities"},
}

const otherCategory = "Other income"

// CategoryBreakdown is one named revenue bucket with its share of the
// total in basis points (10000 = 100%).
type CategoryBreakdown struct {
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	PercentBps int64  `json:"percent_bps"`
}

// ProfitAndLoss is the income statement for a window.
type ProfitAndLoss struct {
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	Revenue       []BalanceLine       `json:"revenue"`
	Expenses      []BalanceLine       `json:"expenses"`
	TotalRevenue  int64               `json:"total_revenue"`
	TotalExpenses int64               `json:"total_expenses"`
	NetIncome     int64               `json:"net_income"`
	Categories    []CategoryBreakdown `json:"categories"`
}

// BuildProfitAndLoss nets revenue (credit minus debit) and expenses (debit
// minus credit) from the window's balances and breaks revenue into fee
// stream buckets.
func BuildProfitAndLoss(balances []AccountBalance, start, end time.Time) ProfitAndLoss {
	pl := ProfitAndLoss{Start: start, End: end}
	buckets := make(map[string]int64)
	for _, b := range balances {
		switch b.AccountType {
		case "REVENUE":
			net := b.Credits - b.Debits
			if net != 0 {
				pl.Revenue = append(pl.Revenue, BalanceLine{AccountCode: b.AccountCode, AccountName: b.AccountName, Balance: net})
			}
			pl.TotalRevenue += net
			buckets[categoryFor(b.AccountCode)] += net
		case "EXPENSE":
			net := b.Debits - b.Credits
			if net != 0 {
				pl.Expenses = append(pl.Expenses, BalanceLine{AccountCode: b.AccountCode, AccountName: b.AccountName, Balance: net})
			}
			pl.TotalExpenses += net
		}
	}
	sort.Slice(pl.Revenue, func(i, j int) bool { return pl.Revenue[i].AccountCode < pl.Revenue[j].AccountCode })
	sort.Slice(pl.Expenses, func(i, j int) bool { return pl.Expenses[i].AccountCode < pl.Expenses[j].AccountCode })
	pl.NetIncome = pl.TotalRevenue - pl.TotalExpenses

	for name, amount := range buckets {
		if amount == 0 {
			continue
		}
		breakdown := CategoryBreakdown{Name: name, Amount: amount}
		if pl.TotalRevenue != 0 {
			breakdown.PercentBps = amount * 10000 / pl.TotalRevenue
		}
		pl.Categories = append(pl.Categories, breakdown)
	}
	sort.Slice(pl.Categories, func(i, j int) bool {
		if pl.Categories[i].Amount != pl.Categories[j].Amount {
			return pl.Categories[i].Amount > pl.Categories[j].Amount
		}
		return pl.Categories[i].Name < pl.Categories[j].Name
	})
	return pl
}

func categoryFor(code string) string {
	for _, bucket := range categoryBuckets {
		if len(code) >= len(bucket.Prefix) && code[:len(bucket.Prefix)] == bucket.Prefix {
			return bucket.Name
		}
	}
	return otherCategory
}
