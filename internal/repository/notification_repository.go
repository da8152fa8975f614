package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/craftplan/craftplan-api/internal/models"
)

type NotificationRepository interface {
	CreateNotification(n models.Notification) (models.Notification, error)
	ListRecent(tenantID string, limit int) ([]models.Notification, error)
	MarkRead(tenantID, id string) (models.Notification, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = "id, tenant_id, event_type, severity, title, message, metadata, read_at, created_at"

func scanNotification(row rowScanner) (models.Notification, error) {
	var (
		n        models.Notification
		metadata []byte
	)
	err := row.Scan(&n.ID, &n.TenantID, &n.EventType, &n.Severity, &n.Title, &n.Message, &metadata, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}
	if len(metadata) > 0 {
		n.Metadata = json.RawMessage(metadata)
	}
	return n, nil
}

func (r *notificationRepository) CreateNotification(n models.Notification) (models.Notification, error) {
	const query = `
		INSERT INTO erp.notifications (tenant_id, event_type, severity, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns + `;
	`

	metadata := []byte("{}")
	if len(n.Metadata) > 0 {
		metadata = n.Metadata
	}

	return scanNotification(r.db.QueryRow(query,
		n.TenantID,
		n.EventType,
		n.Severity,
		n.Title,
		n.Message,
		metadata,
	))
}

func (r *notificationRepository) ListRecent(tenantID string, limit int) ([]models.Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM erp.notifications
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`

	rows, err := r.db.Query(query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(tenantID, id string) (models.Notification, error) {
	const query = `
		UPDATE erp.notifications
		SET read_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + notificationColumns + `;
	`
	return scanNotification(r.db.QueryRow(query, id, tenantID))
}
