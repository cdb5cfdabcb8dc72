// Package notification はユーザー操作に伴うメール通知を提供する。
//
// ユーザーの作成・更新・削除イベントを受け取り、対応するメールを
// バックグラウンドで送信する。送信は一度きりのベストエフォートで、
// 失敗してもログと配送記録に残すだけで呼び出し元には伝えない。
// 配送記録は /api/notifications で参照できる。
package notification
