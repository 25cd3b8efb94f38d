package service

import (
	"context"
	"fmt"

	"github.com/quidbooks/server/internal/ingest"
	"github.com/quidbooks/server/internal/models"
)

// UploadBankTransactions parses a raw statement export, categorizes each
// row, appends the records to the business's transaction history and returns
// them with a batch summary. Session and access failures propagate
// unchanged, as does ingest.ErrStatementTooShort.
func (s *DefaultService) UploadBankTransactions(ctx context.Context, token, businessID, statement string) (*models.UploadStatementResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMembership(ctx, session.UserID, businessID); err != nil {
		return nil, err
	}

	transactions, err := ingest.ParseStatement(statement, businessID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendTransactions(ctx, transactions); err != nil {
		return nil, fmt.Errorf("error storing transactions: %w", err)
	}

	return &models.UploadStatementResponse{
		Success:           true,
		TransactionsCount: len(transactions),
		Transactions:      transactions,
		Summary:           ingest.Summarize(transactions),
	}, nil
}

// Transactions returns a business's stored transactions, optionally filtered
// by inclusive date bounds and/or exact category. Empty filter values mean
// "no bound".
func (s *DefaultService) Transactions(ctx context.Context, token, businessID, startDate, endDate, category string) (*models.TransactionsResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMembership(ctx, session.UserID, businessID); err != nil {
		return nil, err
	}

	transactions, err := s.repo.GetTransactions(ctx, businessID, startDate, endDate, category)
	if err != nil {
		return nil, fmt.Errorf("error getting transactions: %w", err)
	}

	return &models.TransactionsResponse{
		Success:      true,
		Count:        len(transactions),
		Transactions: transactions,
	}, nil
}

// TaxExport produces the stable export consumed by the downstream
// tax-computation engine: the business's full transaction history grouped by
// category, plus a summary. No tax is computed here.
func (s *DefaultService) TaxExport(ctx context.Context, token, businessID string) (*models.TaxExport, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	business, err := s.requireMembership(ctx, session.UserID, businessID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.GetTransactions(ctx, businessID, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting transactions: %w", err)
	}

	grouped := make(map[string][]models.Transaction)
	for _, t := range transactions {
		grouped[t.Category] = append(grouped[t.Category], t)
	}

	return &models.TaxExport{
		Success:      true,
		BusinessID:   business.ID,
		BusinessName: business.Name,
		BusinessType: business.BusinessType,
		TaxYear:      business.TaxYear,
		Categories:   grouped,
		Summary:      ingest.Summarize(transactions),
	}, nil
}
