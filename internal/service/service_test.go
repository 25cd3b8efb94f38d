package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/quidbooks/server/internal/auth"
	"github.com/quidbooks/server/internal/config"
	"github.com/quidbooks/server/internal/ingest"
	"github.com/quidbooks/server/internal/models"
	"github.com/quidbooks/server/internal/repository"
	"github.com/quidbooks/server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service.DefaultService, *repository.SQLRepository) {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, config.CreateTables(db))

	repo := repository.NewSQLRepository(db)
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	svc := service.NewDefaultService(repo, hasher, "test-secret-key")
	svc.SetClock(func() time.Time { return baseTime })

	return svc, repo
}

func register(t *testing.T, svc *service.DefaultService, username string) *models.RegisterResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: username,
		Password: "secret1",
		Email:    username + "@example.com",
		FullName: "Test " + username,
	})
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, svc *service.DefaultService, username string) *models.LoginResponse {
	t.Helper()

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Username: username,
		Password: "secret1",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg := register(t, svc, "alice")
	assert.True(t, reg.Success)
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, "alice", reg.Username)

	resp := login(t, svc, "alice")
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, reg.UserID, resp.User.UserID)
	assert.Empty(t, resp.User.Businesses)

	session, err := svc.ValidateSession(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, session.UserID)
	assert.Equal(t, "alice", session.Username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")

	_, err := svc.Register(ctx, models.RegisterRequest{
		Username: "alice",
		Password: "other",
		Email:    "other@example.com",
	})
	assert.ErrorIs(t, err, service.ErrUsernameExists)

	// the original record is left untouched
	user, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")

	_, err := svc.Login(ctx, models.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	resp := login(t, svc, "alice")

	require.NoError(t, svc.Logout(ctx, resp.SessionToken))

	// logout is idempotent
	require.NoError(t, svc.Logout(ctx, resp.SessionToken))
	require.NoError(t, svc.Logout(ctx, ""))

	// the token is gone even though its exp claim is still in the future
	_, err := svc.ValidateSession(ctx, resp.SessionToken)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestValidateSessionErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ValidateSession(ctx, "")
	assert.ErrorIs(t, err, service.ErrNoActiveSession)

	_, err = svc.ValidateSession(ctx, "not-a-token")
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestSessionExpiryBoundary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	resp := login(t, svc, "alice")

	// one second before expiry the session is still valid
	svc.SetClock(func() time.Time { return baseTime.Add(24*time.Hour - time.Second) })
	_, err := svc.ValidateSession(ctx, resp.SessionToken)
	assert.NoError(t, err)

	// one second past expiry it is not, and the session row is deleted
	svc.SetClock(func() time.Time { return baseTime.Add(24*time.Hour + time.Second) })
	_, err = svc.ValidateSession(ctx, resp.SessionToken)
	assert.ErrorIs(t, err, service.ErrSessionExpired)

	// with the row gone, the token is just an unknown session
	_, err = svc.ValidateSession(ctx, resp.SessionToken)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestLoggedOutTokenNeverReportsExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	resp := login(t, svc, "alice")

	require.NoError(t, svc.Logout(ctx, resp.SessionToken))

	// the token's 24h lifetime elapsing changes nothing: no session row
	// means invalid, not expired
	svc.SetClock(func() time.Time { return baseTime.Add(25 * time.Hour) })
	_, err := svc.ValidateSession(ctx, resp.SessionToken)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestCurrentUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	reg := register(t, svc, "alice")
	resp := login(t, svc, "alice")

	profile, err := svc.CurrentUser(ctx, resp.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, reg.UserID, profile.UserID)

	// validation failure yields nil, not an error
	profile, err = svc.CurrentUser(ctx, "garbage")
	require.NoError(t, err)
	assert.Nil(t, profile)

	// a session pointing at a vanished user record also yields nil
	_, err = repo.GetDB().Exec(repo.GetDB().Rebind(`DELETE FROM users WHERE id = ?`), reg.UserID)
	require.NoError(t, err)

	profile, err = svc.CurrentUser(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestCreateBusinessDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg := register(t, svc, "alice")
	resp := login(t, svc, "alice")

	created, err := svc.CreateBusiness(ctx, resp.SessionToken, models.CreateBusinessRequest{
		Name: "Alice Ltd",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.BusinessID)
	assert.Equal(t, "Alice Ltd", created.Business.Name)
	assert.Equal(t, reg.UserID, created.Business.OwnerID)
	assert.Equal(t, "Sole Trader", created.Business.BusinessType)
	assert.False(t, created.Business.Settings.VATRegistered)
	assert.Equal(t, "2024/25", created.Business.Settings.TaxYear)
	assert.Equal(t, "31-03", created.Business.Settings.AccountingPeriodEnd)
	assert.Equal(t, []string{reg.UserID}, created.Business.Users)

	// the owner's profile now resolves the business
	profile, err := svc.CurrentUser(ctx, resp.SessionToken)
	require.NoError(t, err)
	require.Len(t, profile.Businesses, 1)
	assert.Equal(t, created.BusinessID, profile.Businesses[0].BusinessID)
}

func TestGetBusinessAccessControl(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")
	register(t, svc, "bob")
	bob := login(t, svc, "bob")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	_, err = svc.GetBusiness(ctx, bob.SessionToken, created.BusinessID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.GetBusiness(ctx, alice.SessionToken, "no-such-business")
	assert.ErrorIs(t, err, service.ErrBusinessNotFound)

	got, err := svc.GetBusiness(ctx, alice.SessionToken, created.BusinessID)
	require.NoError(t, err)
	assert.Equal(t, created.BusinessID, got.BusinessID)
}

func TestAddUserToBusiness(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")
	reg := register(t, svc, "bob")
	bob := login(t, svc, "bob")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	// only the owner can share
	_, err = svc.AddUserToBusiness(ctx, bob.SessionToken, created.BusinessID, models.AddUserToBusinessRequest{Username: "bob"})
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.AddUserToBusiness(ctx, alice.SessionToken, created.BusinessID, models.AddUserToBusinessRequest{Username: "nobody"})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	resp, err := svc.AddUserToBusiness(ctx, alice.SessionToken, created.BusinessID, models.AddUserToBusinessRequest{Username: "bob"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// adding twice is a no-op
	_, err = svc.AddUserToBusiness(ctx, alice.SessionToken, created.BusinessID, models.AddUserToBusinessRequest{Username: "bob"})
	require.NoError(t, err)

	got, err := svc.GetBusiness(ctx, bob.SessionToken, created.BusinessID)
	require.NoError(t, err)
	assert.Contains(t, got.Users, reg.UserID)
	assert.Len(t, got.Users, 2)
}

func TestUploadBankTransactions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	statement := "date,description,amount\n" +
		"2024-04-01,Invoice payment received,1500.00\n" +
		"01/04/2024,Office rent,-800.00\n"

	upload, err := svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, statement)
	require.NoError(t, err)

	assert.True(t, upload.Success)
	assert.Equal(t, 2, upload.TransactionsCount)
	require.Len(t, upload.Transactions, 2)
	assert.Equal(t, "2024-04-01", upload.Transactions[0].Date)
	assert.Equal(t, "Sales", upload.Transactions[0].Category)
	assert.Equal(t, "2024-04-01", upload.Transactions[1].Date)
	assert.Equal(t, "Rent", upload.Transactions[1].Category)

	assert.Equal(t, 1500.0, upload.Summary.TotalIncome)
	assert.Equal(t, 800.0, upload.Summary.TotalExpenses)
	assert.Equal(t, 700.0, upload.Summary.NetAmount)
	assert.Equal(t, map[string]float64{"Sales": 1500, "Rent": 800}, upload.Summary.Categories)
}

func TestUploadAppendsAcrossImports(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	first := "date,description,amount\n2024-04-01,Invoice payment,100.00\n"
	second := "date,description,amount\n2024-04-02,Office rent,-50.00\n"

	_, err = svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, first)
	require.NoError(t, err)
	_, err = svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, second)
	require.NoError(t, err)

	all, err := svc.Transactions(ctx, alice.SessionToken, created.BusinessID, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)
}

func TestUploadErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")
	register(t, svc, "bob")
	bob := login(t, svc, "bob")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	_, err = svc.UploadBankTransactions(ctx, "", created.BusinessID, "date\n2024-04-01\n")
	assert.ErrorIs(t, err, service.ErrNoActiveSession)

	_, err = svc.UploadBankTransactions(ctx, bob.SessionToken, created.BusinessID, "date\n2024-04-01\n")
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, "date,description,amount\n")
	assert.ErrorIs(t, err, ingest.ErrStatementTooShort)
}

func TestTransactionsMembership(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")
	reg := register(t, svc, "bob")
	bob := login(t, svc, "bob")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	member, err := repo.IsBusinessMember(ctx, created.BusinessID, reg.UserID)
	require.NoError(t, err)
	assert.False(t, member)

	_, err = svc.Transactions(ctx, bob.SessionToken, created.BusinessID, "", "", "")
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.Transactions(ctx, bob.SessionToken, "no-such-business", "", "", "")
	assert.ErrorIs(t, err, service.ErrBusinessNotFound)

	// once shared, the member can read and upload
	_, err = svc.AddUserToBusiness(ctx, alice.SessionToken, created.BusinessID, models.AddUserToBusinessRequest{Username: "bob"})
	require.NoError(t, err)

	member, err = repo.IsBusinessMember(ctx, created.BusinessID, reg.UserID)
	require.NoError(t, err)
	assert.True(t, member)

	resp, err := svc.Transactions(ctx, bob.SessionToken, created.BusinessID, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
}

func TestTransactionFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{Name: "Alice Ltd"})
	require.NoError(t, err)

	statement := "date,description,amount\n" +
		"2024-04-01,Invoice payment,100.00\n" +
		"2024-04-10,Office rent,-50.00\n" +
		"2024-05-01,Hotel stay,-80.00\n"

	_, err = svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, statement)
	require.NoError(t, err)

	// inclusive date bounds
	resp, err := svc.Transactions(ctx, alice.SessionToken, created.BusinessID, "2024-04-01", "2024-04-30", "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	resp, err = svc.Transactions(ctx, alice.SessionToken, created.BusinessID, "2024-04-10", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	// exact category match
	resp, err = svc.Transactions(ctx, alice.SessionToken, created.BusinessID, "", "", "Rent")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Office rent", resp.Transactions[0].Description)

	resp, err = svc.Transactions(ctx, alice.SessionToken, created.BusinessID, "", "", "Missing")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
}

func TestTaxExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice")
	alice := login(t, svc, "alice")

	created, err := svc.CreateBusiness(ctx, alice.SessionToken, models.CreateBusinessRequest{
		Name:         "Alice Ltd",
		BusinessType: "Limited Company",
	})
	require.NoError(t, err)

	statement := "date,description,amount\n" +
		"2024-04-01,Invoice payment,100.00\n" +
		"2024-04-02,Customer deposit,250.00\n" +
		"2024-04-03,Office rent,-50.00\n"

	_, err = svc.UploadBankTransactions(ctx, alice.SessionToken, created.BusinessID, statement)
	require.NoError(t, err)

	export, err := svc.TaxExport(ctx, alice.SessionToken, created.BusinessID)
	require.NoError(t, err)

	assert.Equal(t, created.BusinessID, export.BusinessID)
	assert.Equal(t, "Limited Company", export.BusinessType)
	assert.Equal(t, "2024/25", export.TaxYear)
	assert.Len(t, export.Categories["Sales"], 2)
	assert.Len(t, export.Categories["Rent"], 1)
	assert.Equal(t, 350.0, export.Summary.TotalIncome)
	assert.Equal(t, 50.0, export.Summary.TotalExpenses)
}
