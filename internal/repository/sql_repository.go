package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/quidbooks/server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Session operations
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// Business operations
	CreateBusiness(ctx context.Context, business *models.Business) error
	GetBusiness(ctx context.Context, businessID string) (*models.Business, error)
	GetUserBusinesses(ctx context.Context, userID string) ([]models.Business, error)
	GetBusinessMembers(ctx context.Context, businessID string) ([]string, error)
	IsBusinessMember(ctx context.Context, businessID, userID string) (bool, error)
	AddUserToBusiness(ctx context.Context, businessUser *models.BusinessUser) error

	// Transaction operations
	AppendTransactions(ctx context.Context, transactions []models.Transaction) error
	GetTransactions(ctx context.Context, businessID, startDate, endDate, category string) ([]models.Transaction, error)
}

// SQLRepository implements the Repository interface over sqlx. Queries use
// `?` placeholders and are rebound for the active driver, so the same code
// runs on sqlite and postgres.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a new SQL-backed repository
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *SQLRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *SQLRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (id, username, password, email, full_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Password, user.Email, user.FullName, user.CreatedAt)

	return err
}

func (r *SQLRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.db.Rebind(`SELECT * FROM users WHERE username = ?`)

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *SQLRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := r.db.Rebind(`SELECT * FROM users WHERE id = ?`)

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

// Session repository methods
func (r *SQLRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := r.db.Rebind(`
		INSERT INTO sessions (token, user_id, username, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		session.Token, session.UserID, session.Username, session.CreatedAt, session.ExpiresAt)

	return err
}

func (r *SQLRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT * FROM sessions WHERE token = ?`)

	var session models.Session
	err := r.db.GetContext(ctx, &session, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Session not found
		}
		return nil, err
	}

	return &session, nil
}

func (r *SQLRepository) DeleteSession(ctx context.Context, token string) error {
	query := r.db.Rebind(`DELETE FROM sessions WHERE token = ?`)

	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

// Business repository methods
func (r *SQLRepository) CreateBusiness(ctx context.Context, business *models.Business) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	query := r.db.Rebind(`
		INSERT INTO businesses (id, name, owner_id, business_type, tax_number, address,
			tax_year, vat_registered, accounting_period_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, query,
		business.ID, business.Name, business.OwnerID, business.BusinessType,
		business.TaxNumber, business.Address, business.TaxYear,
		business.VATRegistered, business.AccountingPeriodEnd, business.CreatedAt)

	if err != nil {
		return err
	}

	// The owner is always a member of their own business.
	businessUser := &models.BusinessUser{
		BusinessID: business.ID,
		UserID:     business.OwnerID,
		CreatedAt:  business.CreatedAt,
	}

	err = r.addUserToBusinessTx(ctx, tx, businessUser)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLRepository) GetBusiness(ctx context.Context, businessID string) (*models.Business, error) {
	query := r.db.Rebind(`SELECT * FROM businesses WHERE id = ?`)

	var business models.Business
	err := r.db.GetContext(ctx, &business, query, businessID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Business not found
		}
		return nil, err
	}

	return &business, nil
}

func (r *SQLRepository) GetUserBusinesses(ctx context.Context, userID string) ([]models.Business, error) {
	query := r.db.Rebind(`
		SELECT b.* FROM businesses b
		JOIN business_users bu ON b.id = bu.business_id
		WHERE bu.user_id = ?
		ORDER BY b.created_at
	`)

	var businesses []models.Business
	err := r.db.SelectContext(ctx, &businesses, query, userID)
	if err != nil {
		return nil, err
	}

	return businesses, nil
}

func (r *SQLRepository) GetBusinessMembers(ctx context.Context, businessID string) ([]string, error) {
	query := r.db.Rebind(`
		SELECT user_id FROM business_users WHERE business_id = ? ORDER BY created_at
	`)

	var members []string
	err := r.db.SelectContext(ctx, &members, query, businessID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (r *SQLRepository) IsBusinessMember(ctx context.Context, businessID, userID string) (bool, error) {
	query := r.db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM business_users WHERE business_id = ? AND user_id = ?)
	`)

	var isMember bool
	err := r.db.GetContext(ctx, &isMember, query, businessID, userID)
	if err != nil {
		return false, err
	}

	return isMember, nil
}

// addUserToBusinessTx adds a user to a business within an existing transaction.
// Adding an existing member is a no-op.
func (r *SQLRepository) addUserToBusinessTx(ctx context.Context, tx *sql.Tx, businessUser *models.BusinessUser) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM business_users WHERE business_id = ? AND user_id = ?)`),
		businessUser.BusinessID, businessUser.UserID).Scan(&exists)

	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	if businessUser.CreatedAt.IsZero() {
		businessUser.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO business_users (business_id, user_id, created_at) VALUES (?, ?, ?)`)
	_, err = tx.ExecContext(ctx, query,
		businessUser.BusinessID, businessUser.UserID, businessUser.CreatedAt)

	return err
}

func (r *SQLRepository) AddUserToBusiness(ctx context.Context, businessUser *models.BusinessUser) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	err = r.addUserToBusinessTx(ctx, tx, businessUser)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Transaction repository methods
func (r *SQLRepository) AppendTransactions(ctx context.Context, transactions []models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	// A single SQL transaction keeps an import atomic: concurrent imports on
	// the same business interleave without losing rows.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	query := r.db.Rebind(`
		INSERT INTO transactions (id, business_id, date, description, amount, category, reference, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	for i := range transactions {
		t := &transactions[i]
		_, err = tx.ExecContext(ctx, query,
			t.ID, t.BusinessID, t.Date, t.Description, t.Amount,
			t.Category, t.Reference, t.ImportedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLRepository) GetTransactions(
	ctx context.Context,
	businessID string,
	startDate string,
	endDate string,
	category string,
) ([]models.Transaction, error) {
	query := `SELECT * FROM transactions WHERE business_id = ?`
	args := []interface{}{businessID}

	// Dates are stored normalized as YYYY-MM-DD, so lexicographic comparison
	// is chronological comparison.
	if startDate != "" {
		query += ` AND date >= ?`
		args = append(args, startDate)
	}

	if endDate != "" {
		query += ` AND date <= ?`
		args = append(args, endDate)
	}

	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	query += ` ORDER BY date, imported_at`

	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
