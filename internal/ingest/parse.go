// Package ingest turns raw bank-statement exports into canonical transaction
// records and batch summaries.
//
// The input format is deliberately simple: comma-delimited text with a header
// row. Quoted fields are not supported, so a description containing a comma
// splits into two cells. Individual malformed rows are tolerated rather than
// rejected; missing fields default to empty or zero.
package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quidbooks/server/internal/category"
	"github.com/quidbooks/server/internal/models"
	"github.com/shopspring/decimal"
)

// ErrStatementTooShort is returned when the input has no header row or no
// data rows.
var ErrStatementTooShort = errors.New("statement must contain a header row and at least one transaction")

// amountFields are checked in order; the first whose value parses wins.
var amountFields = []string{"amount", "debit", "credit"}

// dateLayout is the canonical YYYY-MM-DD form.
const dateLayout = "2006-01-02"

// dateLayouts are the recognized input shapes, tested in order.
var dateLayouts = []string{dateLayout, "02/01/2006", "02-01-2006"}

// ParseStatement parses raw statement text into canonical transactions for a
// business. now supplies both the import timestamp and the fallback date for
// rows whose date does not match any recognized shape.
func ParseStatement(raw, businessID string, now time.Time) ([]models.Transaction, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return nil, ErrStatementTooShort
	}

	// Header names are matched case-insensitively; unknown headers are kept
	// in the row map and simply ignored downstream.
	var headers []string
	for _, h := range strings.Split(lines[0], ",") {
		headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
	}

	transactions := make([]models.Transaction, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row := zipRow(headers, line)
		transactions = append(transactions, parseRow(row, businessID, now))
	}

	return transactions, nil
}

// zipRow maps a data line onto the header names positionally. Short rows
// leave trailing fields empty; surplus cells are dropped.
func zipRow(headers []string, line string) map[string]string {
	values := strings.Split(line, ",")

	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(values) {
			row[h] = strings.TrimSpace(values[i])
		} else {
			row[h] = ""
		}
	}
	return row
}

func parseRow(row map[string]string, businessID string, now time.Time) models.Transaction {
	amount := parseAmount(row)
	description := row["description"]

	return models.Transaction{
		ID:          uuid.New().String(),
		BusinessID:  businessID,
		Date:        normalizeDate(row["date"], now),
		Description: description,
		Amount:      amount,
		Category:    category.Categorize(description, amount),
		Reference:   row["reference"],
		ImportedAt:  now,
	}
}

// parseAmount returns the first of amount, debit, credit that parses as a
// decimal, or zero when none do.
func parseAmount(row map[string]string) decimal.Decimal {
	for _, field := range amountFields {
		value, ok := row[field]
		if !ok || value == "" {
			continue
		}
		if amount, err := decimal.NewFromString(value); err == nil {
			return amount
		}
	}
	return decimal.Zero
}

// normalizeDate rewrites a date string to YYYY-MM-DD. A value already in
// that form is returned unchanged. Unrecognized shapes fall back to the
// import date.
func normalizeDate(value string, now time.Time) string {
	value = strings.TrimSpace(value)

	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if i == 0 {
			return value
		}
		return t.Format(dateLayout)
	}

	return now.Format(dateLayout)
}
