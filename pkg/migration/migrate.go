// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからSQLファイルを読み込み、golang-migrateで適用状態を追跡する。
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Run はembedされたマイグレーションファイルを順序通りに適用する。
// 未適用のマイグレーションのみ実行し、適用済みのものはスキップする。
// ファイル名形式: 000001_description.up.sql / 000001_description.down.sql
//
// dbのクローズは呼び出し元の責務とする。migrate.Closeはdbを閉じてしまうため呼ばない。
func Run(db *sql.DB, fsys fs.FS, dir string) error {
	m, src, err := newMigrate(db, fsys, dir)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}
	if dirty {
		return fmt.Errorf("マイグレーション %06d がdirty状態です", version)
	}
	return nil
}

// Version は適用済みの最新マイグレーションバージョンを返す。
// 一度も適用されていない場合は0を返す。
func Version(db *sql.DB, fsys fs.FS, dir string) (uint, error) {
	m, src, err := newMigrate(db, fsys, dir)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}
	return version, nil
}

// newMigrate はfs.FSをソース、既存のSQLite接続をDBとするmigrate.Migrateを生成する。
// 返されたsourceのクローズは呼び出し元の責務とする。
func newMigrate(db *sql.DB, fsys fs.FS, dir string) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("マイグレーションの初期化に失敗: %w", err)
	}
	m.Log = migrateLogger{}
	return m, src, nil
}

// migrateLogger はgolang-migrateのログを標準のlogパッケージに流す。
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Printf("[Migration] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }
