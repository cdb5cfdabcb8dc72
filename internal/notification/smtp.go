package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig はSMTPSenderの接続設定。
type SMTPConfig struct {
	// Host はSMTPサーバーのホスト名。
	Host string
	// Port はSMTPサーバーのポート番号（submissionは587）。
	Port int
	// Username はSMTP認証のユーザー名。
	Username string
	// Password はSMTP認証のパスワード。
	Password string
	// From は送信元アドレス。
	From string
}

// SMTPSender はSMTPでメールを送信するSender。
// PLAIN認証とSTARTTLSを必須とする。
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender は新しいSMTPSenderを生成する。
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send はmsgを1通送信する。接続は送信ごとに確立して閉じる。
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("送信元アドレスが不正: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("宛先アドレスが不正: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("SMTPクライアントの生成に失敗: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("SMTP送信に失敗: %w", err)
	}
	return nil
}
