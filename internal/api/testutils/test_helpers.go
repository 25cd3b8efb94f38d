package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/quidbooks/server/internal/api"
	"github.com/quidbooks/server/internal/auth"
	"github.com/quidbooks/server/internal/config"
	"github.com/quidbooks/server/internal/models"
	"github.com/quidbooks/server/internal/repository"
	"github.com/quidbooks/server/internal/service"
	"github.com/quidbooks/server/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	DB         *sqlx.DB

	TestUserID    string
	TestUserToken string
}

// SetupTestContext wires the full stack against an in-memory sqlite store
// and seeds one logged-in user (testuser / testpassword).
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	db.SetMaxOpenConns(1)

	require.NoError(t, config.CreateTables(db), "Failed to create tables")

	repo := repository.NewSQLRepository(db)
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	svc := service.NewDefaultService(repo, hasher, "test-secret-key")

	handler := api.NewHandler(svc, utils.NewLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	userID, token := createTestUser(t, svc)

	return &TestContext{
		Router:        router,
		Repository:    repo,
		Service:       svc,
		DB:            db,
		TestUserID:    userID,
		TestUserToken: token,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	if tc.DB != nil {
		tc.DB.Close()
	}
}

func createTestUser(t *testing.T, svc service.Service) (string, string) {
	t.Helper()

	reg, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "testuser",
		Password: "testpassword",
		Email:    "testuser@example.com",
		FullName: "Test User",
	})
	require.NoError(t, err, "Failed to create test user")

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Username: "testuser",
		Password: "testpassword",
	})
	require.NoError(t, err, "Failed to log in test user")

	return reg.UserID, login.SessionToken
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
