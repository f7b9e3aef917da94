package middleware

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// sqlDatabase adapts a plain *sql.DB to the database.DB interface
type sqlDatabase struct {
	db *sql.DB
}

func (s *sqlDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in test database")
}

func (s *sqlDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in test database")
}

func (s *sqlDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

func (s *sqlDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

func (s *sqlDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

func (s *sqlDatabase) Close() error { return s.db.Close() }
func (s *sqlDatabase) Ping() error  { return s.db.Ping() }

var testProfileColumns = []string{
	"id", "user_id", "provider_type", "business_name", "description",
	"contact_email", "contact_phone", "city", "verification_status", "is_active",
	"reviewed_by", "reviewed_at", "review_notes", "created_at", "updated_at",
}

func profileRow(userID uuid.UUID, providerType models.ProviderType, status models.VerificationStatus, notes interface{}) []driver.Value {
	now := time.Now()
	return []driver.Value{
		uuid.New(), userID, string(providerType), "Test Business", nil,
		nil, "0712345678", nil, string(status), status == models.VerificationApproved,
		nil, nil, notes, now, now,
	}
}

func setupGuardedRouter(t *testing.T, providerType models.ProviderType) (*gin.Engine, sqlmock.Sqlmock, uuid.UUID, string) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewProviderProfileRepository(&sqlDatabase{db: db})

	jwtService := setupTestJWTService()
	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "0712345678", []string{"customer"})
	require.NoError(t, err)

	router := setupTestRouter()
	router.GET("/dashboard",
		AuthMiddleware(jwtService),
		RequireApprovedProvider(repo, providerType),
		func(c *gin.Context) {
			profile, ok := GetProviderProfile(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{
				"message":       "welcome",
				"provider_type": profile.ProviderType,
			})
		},
	)

	return router, mock, userID, token
}

func serveDashboard(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireApprovedProvider_Approved(t *testing.T) {
	router, mock, userID, token := setupGuardedRouter(t, models.ProviderVendor)

	mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
		WithArgs(userID, models.ProviderVendor).
		WillReturnRows(sqlmock.NewRows(testProfileColumns).
			AddRow(profileRow(userID, models.ProviderVendor, models.VerificationApproved, nil)...))

	w := serveDashboard(router, token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "welcome")
	assert.Contains(t, w.Body.String(), "vendor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireApprovedProvider_NoApplication(t *testing.T) {
	router, mock, userID, token := setupGuardedRouter(t, models.ProviderDriver)

	mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
		WithArgs(userID, models.ProviderDriver).
		WillReturnError(sql.ErrNoRows)

	w := serveDashboard(router, token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NO_APPLICATION")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireApprovedProvider_Pending(t *testing.T) {
	router, mock, userID, token := setupGuardedRouter(t, models.ProviderServiceProvider)

	mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
		WithArgs(userID, models.ProviderServiceProvider).
		WillReturnRows(sqlmock.NewRows(testProfileColumns).
			AddRow(profileRow(userID, models.ProviderServiceProvider, models.VerificationPending, nil)...))

	w := serveDashboard(router, token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "APPLICATION_PENDING")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireApprovedProvider_RejectedWithNotes(t *testing.T) {
	router, mock, userID, token := setupGuardedRouter(t, models.ProviderMedicalProvider)

	mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
		WithArgs(userID, models.ProviderMedicalProvider).
		WillReturnRows(sqlmock.NewRows(testProfileColumns).
			AddRow(profileRow(userID, models.ProviderMedicalProvider, models.VerificationRejected, "License expired")...))

	w := serveDashboard(router, token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "APPLICATION_REJECTED")
	assert.Contains(t, w.Body.String(), "License expired")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireApprovedProvider_Unauthenticated(t *testing.T) {
	router, _, _, _ := setupGuardedRouter(t, models.ProviderVendor)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireApprovedProvider_LookupFailure(t *testing.T) {
	router, mock, userID, token := setupGuardedRouter(t, models.ProviderPropertyOwner)

	mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
		WithArgs(userID, models.ProviderPropertyOwner).
		WillReturnError(fmt.Errorf("connection reset"))

	w := serveDashboard(router, token)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "PROFILE_LOOKUP_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The same guard constructor must serve every vertical without
// per-vertical code.
func TestRequireApprovedProvider_AllVerticals(t *testing.T) {
	for providerType := range models.Verticals {
		t.Run(string(providerType), func(t *testing.T) {
			router, mock, userID, token := setupGuardedRouter(t, providerType)

			mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
				WithArgs(userID, providerType).
				WillReturnRows(sqlmock.NewRows(testProfileColumns).
					AddRow(profileRow(userID, providerType, models.VerificationApproved, nil)...))

			w := serveDashboard(router, token)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
