package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders minor units as a grouped decimal string, e.g.
// 1234567 -> "12,345.67". Negative amounts keep a leading minus.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return printer.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatPercentBps renders basis points as a percentage, e.g. 2450 -> "24.50%".
func FormatPercentBps(bps int64) string {
	sign := ""
	if bps < 0 {
		sign = "-"
		bps = -bps
	}
	return printer.Sprintf("%s%d.%02d%%", sign, bps/100, bps%100)
}

// TrialBalanceView is the display form of a trial balance.
type TrialBalanceView struct {
	Rows         []TrialBalanceRowView
	TotalDebits  string
	TotalCredits string
	IsBalanced   bool
}

// TrialBalanceRowView is one display row.
type TrialBalanceRowView struct {
	AccountCode string
	AccountName string
	Debits      string
	Credits     string
}

// NewTrialBalanceView formats a trial balance for display.
func NewTrialBalanceView(tb TrialBalance) TrialBalanceView {
	view := TrialBalanceView{
		TotalDebits:  FormatAmount(tb.TotalDebits),
		TotalCredits: FormatAmount(tb.TotalCredits),
		IsBalanced:   tb.IsBalanced,
	}
	for _, row := range tb.Rows {
		view.Rows = append(view.Rows, TrialBalanceRowView{
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Debits:      FormatAmount(row.Debits),
			Credits:     FormatAmount(row.Credits),
		})
	}
	return view
}
