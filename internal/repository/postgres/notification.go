package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "centerID", n.CenterID, "equipmentID", n.EquipmentID, "kind", n.Kind)

	if n.Attributes == nil {
		n.Attributes = map[string]string{}
	}
	attrs, err := json.Marshal(n.Attributes)
	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to marshal attributes")
		return err
	}

	query := `INSERT INTO notifications (center_id, equipment_id, kind, title, message, attributes, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "centerID", n.CenterID, "kind", n.Kind)
	err = r.db.QueryRowContext(ctx, query, n.CenterID, n.EquipmentID, n.Kind, n.Title, n.Message, attrs, n.CreatedOn).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "centerID", n.CenterID)
		return storeErr("create notification", err)
	}
	logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	return nil
}

func (r *notificationRepository) ListByCenter(ctx context.Context, centerID string, limit, offset int32) ([]domain.Notification, int32, error) {
	query := `SELECT id, center_id, equipment_id, kind, title, message, attributes, created_on
	          FROM notifications WHERE center_id = $1 ORDER BY created_on DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, centerID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list notifications", err)
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var attrs []byte
		if err := rows.Scan(&n.ID, &n.CenterID, &n.EquipmentID, &n.Kind, &n.Title, &n.Message, &attrs, &n.CreatedOn); err != nil {
			return nil, 0, storeErr("list notifications", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				return nil, 0, err
			}
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("list notifications", err)
	}

	var count int32
	countQuery := `SELECT count(*) FROM notifications WHERE center_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, centerID).Scan(&count); err != nil {
		return nil, 0, storeErr("count notifications", err)
	}
	return notes, count, nil
}
