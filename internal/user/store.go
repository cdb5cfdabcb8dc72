package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/userhub/internal/database"
)

// Repository はユーザーレコードの永続化操作。
// Handlerはこのインターフェース越しにストアを利用する。
type Repository interface {
	// List は全ユーザーを作成日時の新しい順に返す。
	List(ctx context.Context) ([]Record, error)
	// Get は指定IDのユーザーを返す。存在しない場合はErrNotFound。
	Get(ctx context.Context, id string) (*Record, error)
	// Create はユーザーを作成して保存済みのレコードを返す。
	Create(ctx context.Context, params CreateParams) (*Record, error)
	// Update は指定されたフィールドのみを更新する。存在しない場合はErrNotFound。
	Update(ctx context.Context, id string, params UpdateParams) (*Record, error)
	// Delete はユーザーを削除して削除したレコードを返す。存在しない場合はnil。
	Delete(ctx context.Context, id string) (*Record, error)
	// CountByState は州ごとのユーザー数を件数の多い順に返す。
	CountByState(ctx context.Context) ([]StateCount, error)
}

// Store はSQLiteに保存するRepositoryの実装。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

var _ Repository = (*Store)(nil)

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord はDB行をRecordに変換する。
func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.State, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List は全ユーザーを作成日時の新しい順に返す。
// 作成日時が同じ場合は後から挿入したものを先にする。
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, sqlListUsers)
	if err != nil {
		return nil, &OperationError{Op: "list", Err: err}
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &OperationError{Op: "list", Err: err}
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &OperationError{Op: "list", Err: err}
	}
	return records, nil
}

// Get は指定IDのユーザーを返す。
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, sqlGetUserByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &OperationError{Op: "get", Err: err}
	}
	return rec, nil
}

// Create はユーザーを検証してから保存する。
// IDを採番し、作成日時と更新日時には同じ時刻を設定する。
func (s *Store) Create(ctx context.Context, params CreateParams) (*Record, error) {
	now := s.now().UTC()
	rec := &Record{
		ID:        uuid.New().String(),
		Name:      normalize(params.Name),
		Email:     normalize(params.Email),
		State:     normalize(params.State),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	ts := database.FormatTime(now)
	if _, err := s.db.ExecContext(ctx, sqlInsertUser,
		rec.ID, rec.Name, rec.Email, rec.State, ts, ts,
	); err != nil {
		return nil, &OperationError{Op: "create", Err: err}
	}
	return rec, nil
}

// Update は指定されたフィールドのみを置き換え、更新日時を進める。
// 読み出しから書き込みまでを1つのトランザクションで行う。
func (s *Store) Update(ctx context.Context, id string, params UpdateParams) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &OperationError{Op: "update", Err: fmt.Errorf("トランザクション開始に失敗: %w", err)}
	}
	defer tx.Rollback() //nolint:errcheck

	rec, err := scanRecord(tx.QueryRowContext(ctx, sqlGetUserByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &OperationError{Op: "update", Err: err}
	}

	params.apply(rec)
	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	// 更新日時は単調増加させる
	now := s.now().UTC()
	if !now.After(rec.UpdatedAt) {
		now = rec.UpdatedAt.Add(time.Microsecond)
	}
	rec.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, sqlUpdateUser,
		rec.Name, rec.Email, rec.State, database.FormatTime(now), rec.ID,
	); err != nil {
		return nil, &OperationError{Op: "update", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &OperationError{Op: "update", Err: fmt.Errorf("コミットに失敗: %w", err)}
	}
	return rec, nil
}

// Delete はユーザーを完全に削除し、削除したレコードを返す。
// 指定IDが存在しない場合はエラーにせずnilを返す。
func (s *Store) Delete(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, sqlDeleteUser, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &OperationError{Op: "delete", Err: err}
	}
	return rec, nil
}

// CountByState は州ごとのユーザー数を件数の多い順に返す。
// 件数が同じ場合は州名の昇順に並べる。
func (s *Store) CountByState(ctx context.Context) ([]StateCount, error) {
	rows, err := s.db.QueryContext(ctx, sqlCountUsersByState)
	if err != nil {
		return nil, &OperationError{Op: "count by state", Err: err}
	}
	defer rows.Close()

	counts := make([]StateCount, 0)
	for rows.Next() {
		var sc StateCount
		if err := rows.Scan(&sc.State, &sc.Count); err != nil {
			return nil, &OperationError{Op: "count by state", Err: err}
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, &OperationError{Op: "count by state", Err: err}
	}
	return counts, nil
}
