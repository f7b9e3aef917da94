package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

func setupApprovalService(t *testing.T) (*ApprovalService, sqlmock.Sqlmock, <-chan ProfileStatusEvent) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wrapped := &sqlDatabase{db: db}
	profileRepo := database.NewProviderProfileRepository(wrapped)
	audit := NewAuditService(database.NewAuditLogRepository(wrapped), true)

	bus := NewEventBus(testLogger())
	t.Cleanup(bus.Close)
	events := bus.Subscribe()

	return NewApprovalService(profileRepo, audit, bus, testLogger()), mock, events
}

func TestApprovalServiceApprove(t *testing.T) {
	svc, mock, events := setupApprovalService(t)

	profileID := uuid.New()
	userID := uuid.New()
	adminID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE provider_profiles`).
		WithArgs(models.VerificationApproved, adminID, nil, profileID).
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(
			profileID, userID, "vendor", "Mama Mboga Groceries", nil,
			nil, "0712345678", nil, "approved", true,
			adminID, now, nil, now, now,
		))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile, err := svc.Approve(profileID, Disposition{AdminID: adminID})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, profile.VerificationStatus)
	assert.True(t, profile.IsActive)

	select {
	case event := <-events:
		assert.Equal(t, profileID, event.ProfileID)
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, models.ProviderVendor, event.ProviderType)
		assert.Equal(t, models.VerificationApproved, event.Status)
	case <-time.After(time.Second):
		t.Fatal("no status event published")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalServiceReject(t *testing.T) {
	svc, mock, events := setupApprovalService(t)

	profileID := uuid.New()
	userID := uuid.New()
	adminID := uuid.New()
	now := time.Now()
	notes := "Business permit missing"

	mock.ExpectQuery(`UPDATE provider_profiles`).
		WithArgs(models.VerificationRejected, adminID, notes, profileID).
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(
			profileID, userID, "driver", "Boda Express", nil,
			nil, "0711000000", nil, "rejected", false,
			adminID, now, notes, now, now,
		))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile, err := svc.Reject(profileID, Disposition{AdminID: adminID, Notes: notes})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, profile.VerificationStatus)
	assert.False(t, profile.IsActive)
	assert.Equal(t, notes, profile.ReviewNotes.String)

	select {
	case event := <-events:
		assert.Equal(t, models.VerificationRejected, event.Status)
		assert.Equal(t, notes, event.Notes)
	case <-time.After(time.Second):
		t.Fatal("no status event published")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalServiceProfileMissing(t *testing.T) {
	svc, mock, events := setupApprovalService(t)

	mock.ExpectQuery(`UPDATE provider_profiles`).
		WillReturnError(database.ErrNotFound)

	profile, err := svc.Approve(uuid.New(), Disposition{AdminID: uuid.New()})
	assert.Error(t, err)
	assert.Nil(t, profile)

	select {
	case <-events:
		t.Fatal("no event should be published for a failed disposition")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApprovalServiceAuditFailureKeepsDisposition(t *testing.T) {
	svc, mock, events := setupApprovalService(t)

	profileID := uuid.New()
	userID := uuid.New()
	adminID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE provider_profiles`).
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(
			profileID, userID, "vendor", "Mama Mboga Groceries", nil,
			nil, "0712345678", nil, "approved", true,
			adminID, now, nil, now, now,
		))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnError(assert.AnError)

	// The UPDATE already committed: the caller still gets a success so
	// the admin is told the truth, and the status event still goes out
	// so the provider's notification is not lost
	profile, err := svc.Approve(profileID, Disposition{AdminID: adminID})
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, models.VerificationApproved, profile.VerificationStatus)
	assert.True(t, profile.IsActive)

	select {
	case event := <-events:
		assert.Equal(t, profileID, event.ProfileID)
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, models.VerificationApproved, event.Status)
	case <-time.After(time.Second):
		t.Fatal("no status event published despite committed approval")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}
