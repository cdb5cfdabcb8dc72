package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/userhub/internal/database"
	"github.com/nao1215/userhub/pkg/event"
)

// publishTimeout はPublishでの追記に使うタイムアウト。
const publishTimeout = 5 * time.Second

// バージョンの採番と追記を1文で行う。
const sqlAppendEvent = `
INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
VALUES (?, ?, ?, ?, ?,
    (SELECT COALESCE(MAX(version), 0) + 1 FROM events WHERE aggregate_id = ?),
    ?)
RETURNING version
`

const sqlListEventsByAggregateID = `
SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
FROM events
WHERE aggregate_id = ?
ORDER BY version ASC
`

const sqlListEventsByType = `
SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
FROM events
WHERE event_type = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

const sqlListEventsSince = `
SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
FROM events
WHERE created_at > ?
ORDER BY created_at ASC, rowid ASC
LIMIT ?
`

const sqlLatestVersion = `
SELECT COALESCE(MAX(version), 0)
FROM events
WHERE aggregate_id = ?
`

// Store はイベント履歴をSQLiteに保存する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

var _ event.Publisher = (*Store)(nil)

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append はevtを履歴に追記し、採番したバージョンをevt.Versionに設定する。
func (s *Store) Append(ctx context.Context, evt *event.Event) error {
	var version int64
	err := s.db.QueryRowContext(ctx, sqlAppendEvent,
		evt.ID, evt.AggregateID, string(evt.AggregateType), string(evt.EventType), string(evt.Data),
		evt.AggregateID, database.FormatTime(evt.CreatedAt),
	).Scan(&version)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	evt.Version = version
	return nil
}

// Publish はevtを履歴に追記する。失敗はログに記録するだけで呼び出し元には返さない。
func (s *Store) Publish(evt *event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.Append(ctx, evt); err != nil {
		log.Printf("[EventStore] %s の保存に失敗: aggregate_id=%s: %v", evt.EventType, evt.AggregateID, err)
	}
}

// ListByAggregateID は指定したユーザーのイベントをバージョン順に返す。
func (s *Store) ListByAggregateID(ctx context.Context, aggregateID string) ([]event.Event, error) {
	return s.query(ctx, sqlListEventsByAggregateID, aggregateID)
}

// ListByType は指定した種類のイベントを新しい順に最大limit件返す。
func (s *Store) ListByType(ctx context.Context, eventType event.Type, limit int) ([]event.Event, error) {
	return s.query(ctx, sqlListEventsByType, string(eventType), limit)
}

// ListSince はsinceより後に発生したイベントを古い順に最大limit件返す。
func (s *Store) ListSince(ctx context.Context, since time.Time, limit int) ([]event.Event, error) {
	return s.query(ctx, sqlListEventsSince, database.FormatTime(since), limit)
}

// LatestVersion は指定したユーザーの最新バージョンを返す。イベントがなければ0。
func (s *Store) LatestVersion(ctx context.Context, aggregateID string) (int64, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, sqlLatestVersion, aggregateID).Scan(&version); err != nil {
		return 0, fmt.Errorf("最新バージョンの取得に失敗: %w", err)
	}
	return version, nil
}

// query はイベントを返すクエリを実行する共通処理。
func (s *Store) query(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		var e event.Event
		var aggregateType, eventType, data, createdAt string
		if err := rows.Scan(&e.ID, &e.AggregateID, &aggregateType, &eventType, &data, &e.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		e.AggregateType = event.AggregateType(aggregateType)
		e.EventType = event.Type(eventType)
		e.Data = []byte(data)
		if e.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	return events, nil
}
