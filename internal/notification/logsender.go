package notification

import (
	"context"
	"log"
)

// LogSender はメールを送信せずログに出力するだけのSender。
// メールの認証情報が設定されていない開発環境で使う。
type LogSender struct{}

var _ Sender = LogSender{}

// Send はmsgの内容をログに出力する。
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("[Notifier] メール（ログ出力のみ）: to=%s subject=%q body=%q", msg.To, msg.Subject, msg.Body)
	return nil
}
