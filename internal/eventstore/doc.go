// Package eventstore はユーザーのライフサイクルイベントの履歴を提供する。
//
// ユーザーの作成・更新・削除イベントを追記のみ（append-only）で保存する。
// イベントは不変で、同一ユーザー内では連番のバージョンを持つ。
//
// 主な機能:
//   - イベントの追記（Append / Publish）
//   - AggregateIDによるイベント取得（ユーザーごとの変更履歴）
//   - イベントタイプによるイベント取得
//   - 日時指定によるイベント取得
package eventstore
