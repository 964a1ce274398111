package reports

import (
	"sort"
	"time"
)

// BalanceLine is one account's signed balance on a statement section.
type BalanceLine struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Balance     int64  `json:"balance"`
}

// BalanceSheet is the statement of financial position as of a date. Net
// income for the period to date is folded into the equity total.
type BalanceSheet struct {
	AsOf             time.Time     `json:"as_of"`
	Assets           []BalanceLine `json:"assets"`
	Liabilities      []BalanceLine `json:"liabilities"`
	Equity           []BalanceLine `json:"equity"`
	TotalAssets      int64         `json:"total_assets"`
	TotalLiabilities int64         `json:"total_liabilities"`
	TotalEquity      int64         `json:"total_equity"`
	NetIncome        int64         `json:"net_income"`
	IsBalanced       bool          `json:"is_balanced"`
}

// BuildBalanceSheet classifies cumulative balances up to asOf. Revenue and
// expense accounts contribute only through net income.
func BuildBalanceSheet(balances []AccountBalance, asOf time.Time) BalanceSheet {
	bs := BalanceSheet{AsOf: asOf}
	for _, b := range balances {
		net := b.Net()
		line := BalanceLine{AccountCode: b.AccountCode, AccountName: b.AccountName, Balance: net}
		switch b.AccountType {
		case "ASSET":
			if net != 0 {
				bs.Assets = append(bs.Assets, line)
			}
			bs.TotalAssets += net
		case "LIABILITY":
			if net != 0 {
				bs.Liabilities = append(bs.Liabilities, line)
			}
			bs.TotalLiabilities += net
		case "EQUITY":
			if net != 0 {
				bs.Equity = append(bs.Equity, line)
			}
			bs.TotalEquity += net
		case "REVENUE":
			bs.NetIncome += net
		case "EXPENSE":
			bs.NetIncome -= net
		}
	}
	for _, section := range [][]BalanceLine{bs.Assets, bs.Liabilities, bs.Equity} {
		sort.Slice(section, func(i, j int) bool { return section[i].AccountCode < section[j].AccountCode })
	}
	diff := bs.TotalAssets - (bs.TotalLiabilities + bs.TotalEquity + bs.NetIncome)
	if diff < 0 {
		diff = -diff
	}
	bs.IsBalanced = diff <= balanceTolerance
	return bs
}
