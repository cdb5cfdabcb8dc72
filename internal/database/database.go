// Package database はSQLiteデータベースの接続とスキーマ管理を提供する。
//
// スキーマはmigrations/配下のSQLファイルとしてバイナリに埋め込まれ、
// Open時にgolang-migrateで未適用分のみ適用される。
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/nao1215/userhub/pkg/migration"

	// SQLiteドライバ（"sqlite"）を登録する。
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath はインメモリデータベースを表すパス。テストで使用する。
const MemoryPath = ":memory:"

// TimeLayout はDBに保存する日時の書式。
// 固定幅のため文字列比較で時刻順に並ぶ。
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open はSQLiteデータベースを開き、マイグレーションを適用する。
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if path == MemoryPath {
		// :memory: は接続ごとに別DBになるため単一接続に固定する
		db.SetMaxOpenConns(1)
	}

	if err := migration.Run(db, migrations, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return db, nil
}

// dsn はmodernc.org/sqlite向けの接続文字列を組み立てる。
//
// トランザクションはBEGIN IMMEDIATEで開始する。読み取り後の書き込みロック昇格は
// busy_timeoutで待たずにSQLITE_BUSYとなるため、開始時点で書き込みロックを取る。
func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}

// FormatTime は日時をDB保存用の文字列に変換する。
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime はDBに保存された日時文字列を解析する。
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日時の解析に失敗: %q: %w", s, err)
	}
	return t.UTC(), nil
}
