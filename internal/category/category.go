// Package category assigns tax categories to bank transactions from their
// description and amount. The rule table is ordered and first match wins;
// downstream tax aggregation depends on these labels staying stable, so the
// precedence must not be "improved" even where it looks inconsistent (e.g.
// "VAT refund" classifies as VAT Payment, not income).
package category

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category labels used for aggregation and downstream tax treatment.
const (
	Sales            = "Sales"
	InterestIncome   = "Interest Income"
	Rent             = "Rent"
	Utilities        = "Utilities"
	Salaries         = "Salaries"
	Insurance        = "Insurance"
	OfficeSupplies   = "Office Supplies"
	ProfessionalFees = "Professional Fees"
	Travel           = "Travel"
	Marketing        = "Marketing"
	Equipment        = "Equipment"
	VATPayment       = "VAT Payment"
	CorporationTax   = "Corporation Tax"
	SelfAssessment   = "Self Assessment"
	OtherExpenses    = "Other Expenses"
	Uncategorized    = "Uncategorized"
)

// rule maps a group of keywords (substring match against the lower-cased
// description) to a category.
type rule struct {
	keywords []string
	category string
}

// rules is checked in order; an earlier match always wins over a later one.
var rules = []rule{
	{[]string{"payment", "deposit", "credit", "invoice", "sale"}, Sales},
	{[]string{"transfer in"}, Sales},
	{[]string{"interest", "dividend"}, InterestIncome},
	{[]string{"rent", "lease", "landlord"}, Rent},
	{[]string{"electric", "gas", "water", "utility", "utilities"}, Utilities},
	{[]string{"salary", "salaries", "wage", "payroll", "paye"}, Salaries},
	{[]string{"insurance", "policy"}, Insurance},
	{[]string{"stationery", "supplies", "office"}, OfficeSupplies},
	{[]string{"accountant", "lawyer", "consultant", "professional"}, ProfessionalFees},
	{[]string{"travel", "hotel", "flight", "train", "taxi", "uber"}, Travel},
	{[]string{"advertising", "marketing", "promotion"}, Marketing},
	{[]string{"equipment", "computer", "software", "hardware"}, Equipment},
	{[]string{"vat", "value added tax"}, VATPayment},
	{[]string{"corporation tax", "ct600"}, CorporationTax},
	{[]string{"self assessment", "sa"}, SelfAssessment},
}

// Categorize maps a transaction description and signed amount to a category.
// It is a pure function: no rule table lookups depend on any external state.
// When no keyword matches, the sign of the amount decides: positive amounts
// default to Sales, negative to Other Expenses, zero to Uncategorized.
func Categorize(description string, amount decimal.Decimal) string {
	desc := strings.ToLower(description)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return r.category
			}
		}
	}

	switch amount.Sign() {
	case 1:
		return Sales
	case -1:
		return OtherExpenses
	default:
		return Uncategorized
	}
}
