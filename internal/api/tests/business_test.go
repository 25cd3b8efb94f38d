package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/quidbooks/server/internal/api/testutils"
	"github.com/quidbooks/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// secondUser registers and logs in an extra user alongside the seeded one.
func secondUser(t *testing.T, testCtx *testutils.TestContext, username string) string {
	t.Helper()

	_, err := testCtx.Service.Register(context.Background(), models.RegisterRequest{
		Username: username,
		Password: "Password123",
		Email:    username + "@example.com",
	})
	require.NoError(t, err)

	login, err := testCtx.Service.Login(context.Background(), models.LoginRequest{
		Username: username,
		Password: "Password123",
	})
	require.NoError(t, err)

	return login.SessionToken
}

func createBusiness(t *testing.T, testCtx *testutils.TestContext, token, name string) models.CreateBusinessResponse {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/businesses",
		models.CreateBusinessRequest{Name: name},
		testutils.AuthHeaders(token),
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CreateBusinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateBusiness(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	resp := createBusiness(t, testCtx, testCtx.TestUserToken, "Test Ltd")

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.BusinessID)
	assert.Equal(t, "Test Ltd", resp.Business.Name)
	assert.Equal(t, testCtx.TestUserID, resp.Business.OwnerID)
	assert.False(t, resp.Business.Settings.VATRegistered)
	assert.Equal(t, "31-03", resp.Business.Settings.AccountingPeriodEnd)
	assert.Equal(t, []string{testCtx.TestUserID}, resp.Business.Users)

	// unauthenticated creation is rejected
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/businesses",
		models.CreateBusinessRequest{Name: "Nope Ltd"},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBusiness(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	created := createBusiness(t, testCtx, testCtx.TestUserToken, "Test Ltd")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/businesses/"+created.BusinessID,
		nil,
		testutils.AuthHeaders(testCtx.TestUserToken),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var business models.BusinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &business))
	assert.Equal(t, created.BusinessID, business.BusinessID)

	// unknown business
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/businesses/does-not-exist",
		nil,
		testutils.AuthHeaders(testCtx.TestUserToken),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a non-member is denied
	otherToken := secondUser(t, testCtx, "outsider")
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/businesses/"+created.BusinessID,
		nil,
		testutils.AuthHeaders(otherToken),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "ACCESS_DENIED", errResp.Error)
}

func TestListBusinesses(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	createBusiness(t, testCtx, testCtx.TestUserToken, "First Ltd")
	createBusiness(t, testCtx, testCtx.TestUserToken, "Second Ltd")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/businesses",
		nil,
		testutils.AuthHeaders(testCtx.TestUserToken),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ListBusinessesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Businesses, 2)
}

func TestAddUserToBusiness(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	created := createBusiness(t, testCtx, testCtx.TestUserToken, "Shared Ltd")
	memberToken := secondUser(t, testCtx, "member")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/businesses/"+created.BusinessID+"/users",
		models.AddUserToBusinessRequest{Username: "member"},
		testutils.AuthHeaders(testCtx.TestUserToken),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	// the new member can now read the business
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/businesses/"+created.BusinessID,
		nil,
		testutils.AuthHeaders(memberToken),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// unknown target user
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/businesses/"+created.BusinessID+"/users",
		models.AddUserToBusinessRequest{Username: "ghost"},
		testutils.AuthHeaders(testCtx.TestUserToken),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// non-owner members may not share further
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/businesses/"+created.BusinessID+"/users",
		models.AddUserToBusinessRequest{Username: "testuser"},
		testutils.AuthHeaders(memberToken),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
