package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/userhub/internal/database"
	"github.com/nao1215/userhub/pkg/event"
)

// Status は配送結果。
type Status string

const (
	// StatusSent は送信に成功したことを表す。
	StatusSent Status = "sent"
	// StatusFailed は送信に失敗したことを表す。
	StatusFailed Status = "failed"
)

// Delivery は1回の送信試行の記録。
type Delivery struct {
	ID          string
	Recipient   string
	Subject     string
	Body        string
	EventType   event.Type
	AggregateID string
	Status      Status
	Error       string
	CreatedAt   time.Time
}

const sqlInsertDelivery = `
INSERT INTO notifications (id, recipient, subject, body, event_type, aggregate_id, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const sqlListDeliveries = `
SELECT id, recipient, subject, body, event_type, aggregate_id, status, error, created_at
FROM notifications
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

// DeliveryLog は配送記録をSQLiteに保存する。
type DeliveryLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewDeliveryLog は新しいDeliveryLogを生成する。
func NewDeliveryLog(db *sql.DB) *DeliveryLog {
	return &DeliveryLog{db: db, now: time.Now}
}

// Record はdを保存する。IDと記録日時が未設定なら採番する。
func (l *DeliveryLog) Record(ctx context.Context, d *Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = l.now().UTC()
	}

	if _, err := l.db.ExecContext(ctx, sqlInsertDelivery,
		d.ID, d.Recipient, d.Subject, d.Body, string(d.EventType), d.AggregateID,
		string(d.Status), d.Error, database.FormatTime(d.CreatedAt),
	); err != nil {
		return fmt.Errorf("配送記録の保存に失敗: %w", err)
	}
	return nil
}

// List は新しい順に最大limit件の配送記録を返す。
func (l *DeliveryLog) List(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := l.db.QueryContext(ctx, sqlListDeliveries, limit)
	if err != nil {
		return nil, fmt.Errorf("配送記録の取得に失敗: %w", err)
	}
	defer rows.Close()

	deliveries := make([]Delivery, 0)
	for rows.Next() {
		var d Delivery
		var eventType, status, createdAt string
		if err := rows.Scan(&d.ID, &d.Recipient, &d.Subject, &d.Body, &eventType,
			&d.AggregateID, &status, &d.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("配送記録の読み取りに失敗: %w", err)
		}
		d.EventType = event.Type(eventType)
		d.Status = Status(status)
		if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("配送記録の取得に失敗: %w", err)
	}
	return deliveries, nil
}
