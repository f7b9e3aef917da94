package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosmart/marketplace-backend/internal/models"
)

var profileRowColumns = []string{
	"id", "user_id", "provider_type", "business_name", "description",
	"contact_email", "contact_phone", "city", "verification_status", "is_active",
	"reviewed_by", "reviewed_at", "review_notes", "created_at", "updated_at",
}

func pendingProfileRow(id, userID uuid.UUID, providerType models.ProviderType, now time.Time) []driver.Value {
	return []driver.Value{
		id, userID, string(providerType), "Mama Mboga Groceries", nil,
		nil, "0712345678", "Nairobi", "pending", false,
		nil, nil, nil, now, now,
	}
}

func TestProviderProfileCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewProviderProfileRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		profileID := uuid.New()
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO provider_profiles`).
			WithArgs(
				sqlmock.AnyArg(), userID, models.ProviderVendor, "Mama Mboga Groceries", sqlmock.AnyArg(),
				sqlmock.AnyArg(), "0712345678", sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).
				AddRow(pendingProfileRow(profileID, userID, models.ProviderVendor, now)...))

		profile, err := repo.Create(&models.ProviderProfile{
			UserID:       userID,
			ProviderType: models.ProviderVendor,
			BusinessName: "Mama Mboga Groceries",
			ContactPhone: "0712345678",
			City:         models.NullString{NullString: sql.NullString{String: "Nairobi", Valid: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, profileID, profile.ID)
		assert.Equal(t, models.VerificationPending, profile.VerificationStatus)
		assert.False(t, profile.IsActive)
		assert.False(t, profile.ReviewedBy.Valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Application", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectQuery(`INSERT INTO provider_profiles`).
			WillReturnError(&pq.Error{Code: uniqueViolation})

		profile, err := repo.Create(&models.ProviderProfile{
			UserID:       userID,
			ProviderType: models.ProviderDriver,
			BusinessName: "Boda Express",
			ContactPhone: "0711000000",
		})
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Nil(t, profile)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO provider_profiles`).
			WillReturnError(fmt.Errorf("database error"))

		profile, err := repo.Create(&models.ProviderProfile{
			UserID:       uuid.New(),
			ProviderType: models.ProviderVendor,
			BusinessName: "Mama Mboga Groceries",
			ContactPhone: "0712345678",
		})
		assert.Error(t, err)
		assert.Nil(t, profile)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderProfileGetByUserAndType(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewProviderProfileRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		profileID := uuid.New()
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
			WithArgs(userID, models.ProviderMedicalProvider).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).
				AddRow(pendingProfileRow(profileID, userID, models.ProviderMedicalProvider, now)...))

		profile, err := repo.GetByUserAndType(userID, models.ProviderMedicalProvider)
		require.NoError(t, err)
		assert.Equal(t, profileID, profile.ID)
		assert.Equal(t, models.ProviderMedicalProvider, profile.ProviderType)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE user_id = \$1 AND provider_type = \$2`).
			WithArgs(userID, models.ProviderVendor).
			WillReturnError(sql.ErrNoRows)

		profile, err := repo.GetByUserAndType(userID, models.ProviderVendor)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, profile)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderProfileListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewProviderProfileRepository(mockDB)

	t.Run("All Verticals Oldest First", func(t *testing.T) {
		now := time.Now()
		older := uuid.New()
		newer := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE verification_status = 'pending' ORDER BY created_at ASC`).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).
				AddRow(pendingProfileRow(older, uuid.New(), models.ProviderDriver, now.Add(-time.Hour))...).
				AddRow(pendingProfileRow(newer, uuid.New(), models.ProviderVendor, now)...))

		profiles, err := repo.ListPending(nil)
		require.NoError(t, err)
		require.Len(t, profiles, 2)
		assert.Equal(t, older, profiles[0].ID)
		assert.Equal(t, newer, profiles[1].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Filtered By Type", func(t *testing.T) {
		now := time.Now()
		filter := models.ProviderPropertyOwner

		mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE verification_status = 'pending' AND provider_type = \$1 ORDER BY created_at ASC`).
			WithArgs(filter).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).
				AddRow(pendingProfileRow(uuid.New(), uuid.New(), filter, now)...))

		profiles, err := repo.ListPending(&filter)
		require.NoError(t, err)
		require.Len(t, profiles, 1)
		assert.Equal(t, filter, profiles[0].ProviderType)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Queue", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM provider_profiles WHERE verification_status = 'pending' ORDER BY created_at ASC`).
			WillReturnRows(sqlmock.NewRows(profileRowColumns))

		profiles, err := repo.ListPending(nil)
		require.NoError(t, err)
		assert.Empty(t, profiles)
		assert.NotNil(t, profiles)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderProfileSetVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewProviderProfileRepository(mockDB)

	t.Run("Approve Activates Profile", func(t *testing.T) {
		profileID := uuid.New()
		userID := uuid.New()
		adminID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`UPDATE provider_profiles`).
			WithArgs(models.VerificationApproved, adminID, nil, profileID).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow(
				profileID, userID, "vendor", "Mama Mboga Groceries", nil,
				nil, "0712345678", "Nairobi", "approved", true,
				adminID, now, nil, now, now,
			))

		profile, err := repo.SetVerification(profileID, models.VerificationApproved, adminID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationApproved, profile.VerificationStatus)
		assert.True(t, profile.IsActive)
		assert.Equal(t, adminID, profile.ReviewedBy.UUID)
		assert.True(t, profile.ReviewedAt.Valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reject Deactivates And Stores Notes", func(t *testing.T) {
		profileID := uuid.New()
		userID := uuid.New()
		adminID := uuid.New()
		now := time.Now()
		notes := "Business permit missing"

		mock.ExpectQuery(`UPDATE provider_profiles`).
			WithArgs(models.VerificationRejected, adminID, notes, profileID).
			WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow(
				profileID, userID, "driver", "Boda Express", nil,
				nil, "0711000000", nil, "rejected", false,
				adminID, now, notes, now, now,
			))

		profile, err := repo.SetVerification(profileID, models.VerificationRejected, adminID, &notes)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationRejected, profile.VerificationStatus)
		assert.False(t, profile.IsActive)
		assert.Equal(t, notes, profile.ReviewNotes.String)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE provider_profiles`).
			WillReturnError(sql.ErrNoRows)

		profile, err := repo.SetVerification(uuid.New(), models.VerificationApproved, uuid.New(), nil)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, profile)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderProfileCountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewProviderProfileRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT provider_type, COUNT\(\*\)`).
			WithArgs(models.VerificationPending).
			WillReturnRows(sqlmock.NewRows([]string{"provider_type", "count"}).
				AddRow("driver", 3).
				AddRow("vendor", 7))

		counts, err := repo.CountByStatus(models.VerificationPending)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, models.ProviderDriver, counts[0].ProviderType)
		assert.Equal(t, int64(3), counts[0].Count)
		assert.Equal(t, int64(7), counts[1].Count)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT provider_type, COUNT\(\*\)`).
			WillReturnError(fmt.Errorf("database error"))

		counts, err := repo.CountByStatus(models.VerificationPending)
		assert.Error(t, err)
		assert.Nil(t, counts)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
