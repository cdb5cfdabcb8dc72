// Package event はユーザーのライフサイクルイベントを表す型と配信の仕組みを提供する。
//
// レコードの作成・更新・削除をイベントとして表現し、
// 通知サービスがイベントの種類に応じたメッセージを組み立てる。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUserCreated はユーザーが作成されたことを表す。
	TypeUserCreated Type = "UserCreated"
	// TypeUserUpdated はユーザー情報が更新されたことを表す。
	TypeUserUpdated Type = "UserUpdated"
	// TypeUserDeleted はユーザーが削除されたことを表す。
	TypeUserDeleted Type = "UserDeleted"
)

// Event はユーザーに対する状態変更を表す不変のレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version は同一AggregateID内での連番。イベント履歴への追記時に採番される。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UserData はユーザー系イベントのデータ。
// 削除イベントでは削除前の値を保持する。
type UserData struct {
	// Name はユーザー名。
	Name string `json:"name"`
	// Email は通知先のメールアドレス。
	Email string `json:"email"`
	// State はユーザーが所属する州。
	State string `json:"state"`
}
