package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary amounts go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// User represents a registered user
type User struct {
	ID        string    `db:"id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Session represents an authenticated session. The token column holds the
// full signed JWT string; the table is authoritative so logout genuinely
// revokes a token before its exp claim runs out.
type Session struct {
	Token     string    `db:"token" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Business represents a taxable entity owned by one user and optionally
// shared with others. Settings columns are stored flat; the API response
// nests them (see BusinessResponse).
type Business struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	OwnerID             string    `db:"owner_id"`
	BusinessType        string    `db:"business_type"`
	TaxNumber           string    `db:"tax_number"`
	Address             string    `db:"address"`
	TaxYear             string    `db:"tax_year"`
	VATRegistered       bool      `db:"vat_registered"`
	AccountingPeriodEnd string    `db:"accounting_period_end"`
	CreatedAt           time.Time `db:"created_at"`
}

// BusinessUser links a user to a business they can act on. The owner always
// has a row.
type BusinessUser struct {
	BusinessID string    `db:"business_id" json:"business_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// BusinessSettings is the nested settings block of a business response.
type BusinessSettings struct {
	TaxYear             string `json:"tax_year"`
	VATRegistered       bool   `json:"vat_registered"`
	AccountingPeriodEnd string `json:"accounting_period_end"`
}

// Transaction is the canonical record produced by statement ingestion.
// Date is always the normalized YYYY-MM-DD form, so string comparison
// orders chronologically. Records are immutable once stored.
type Transaction struct {
	ID          string          `db:"id" json:"-"`
	BusinessID  string          `db:"business_id" json:"business_id"`
	Date        string          `db:"date" json:"date"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Category    string          `db:"category" json:"category"`
	Reference   string          `db:"reference" json:"reference"`
	ImportedAt  time.Time       `db:"imported_at" json:"imported_at"`
}
