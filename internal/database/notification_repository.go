package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification for a user
func (r *NotificationRepository) Create(userID uuid.UUID, title, body string) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (id, user_id, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING id, user_id, title, body, read, created_at, read_at
	`

	n := &models.Notification{}
	err := r.db.QueryRow(query, uuid.New(), userID, title, body).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt, &n.ReadAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(userID uuid.UUID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, title, body, read, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt, &n.ReadAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead marks a notification as read. Scoped by user so one user
// cannot mark another user's notifications.
func (r *NotificationRepository) MarkRead(id, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read = TRUE, read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read = FALSE
	`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either missing, not owned, or already read
		var exists bool
		if err := r.db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
			id, userID,
		).Scan(&exists); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to check notification: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}

	return nil
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
