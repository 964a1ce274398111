package accounts

// DefaultChart is the chart of accounts installed on first boot. Codes
// follow the bursary numbering convention: 1xxx assets, 2xxx liabilities,
// 3xxx equity, 40-44xx revenue by fee category, 5xxx expenses.
func DefaultChart() []Account {
	return []Account{
		{Code: "1000", Name: "Cash and Bank", Type: AccountTypeAsset},
		{Code: "1010", Name: "Mobile Money Clearing", Type: AccountTypeAsset},
		{Code: "1200", Name: "Fees Receivable", Type: AccountTypeAsset},
		{Code: "2100", Name: "Student Credit Balances", Type: AccountTypeLiability},
		{Code: "2200", Name: "Accounts Payable", Type: AccountTypeLiability},
		{Code: "3000", Name: "Accumulated Fund", Type: AccountTypeEquity},
		{Code: "4000", Name: "Tuition Fees", Type: AccountTypeRevenue},
		{Code: "4100", Name: "Boarding Fees", Type: AccountTypeRevenue},
		{Code: "4200", Name: "Grants and Donations", Type: AccountTypeRevenue},
		{Code: "4300", Name: "Transport Fees", Type: AccountTypeRevenue},
		{Code: "4400", Name: "Activity Fees", Type: AccountTypeRevenue},
		{Code: "5000", Name: "Salaries and Wages", Type: AccountTypeExpense},
		{Code: "5100", Name: "Utilities", Type: AccountTypeExpense},
		{Code: "5200", Name: "Supplies and Materials", Type: AccountTypeExpense},
		{Code: "5300", Name: "Repairs and Maintenance", Type: AccountTypeExpense},
		{Code: "5900", Name: "Sundry Expenses", Type: AccountTypeExpense},
	}
}
