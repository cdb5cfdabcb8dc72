// Package config は環境変数からuserhubの設定を読み込む。
//
// 起動ディレクトリに .env が存在する場合は先に読み込み、
// 既に設定されている環境変数は上書きしない。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MailTransport は通知の配送方式を表す。
type MailTransport string

const (
	// MailTransportSMTP はSMTPでメールを送信する。
	MailTransportSMTP MailTransport = "smtp"
	// MailTransportWebhook はWebhookへJSONをPOSTする。
	MailTransportWebhook MailTransport = "webhook"
	// MailTransportLog はログ出力のみ行う（開発用）。
	MailTransportLog MailTransport = "log"
)

// Config はuserhubの設定値。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// JWTSecret はAPI認証用のシークレット。空の場合は認証を行わない。
	JWTSecret string
	// Mail は通知配送の設定。
	Mail MailConfig
}

// MailConfig は通知配送の設定値。
type MailConfig struct {
	// Transport は配送方式。
	Transport MailTransport
	// SMTPHost はSMTPサーバーのホスト名。
	SMTPHost string
	// SMTPPort はSMTPサーバーのポート番号。
	SMTPPort int
	// Username はSMTP認証のユーザー名。
	Username string
	// Password はSMTP認証のパスワード。
	Password string
	// From は送信元アドレス。
	From string
	// WebhookURL はWebhook配送先のURL。
	WebhookURL string
	// WebhookToken はWebhookに付与するBearerトークン。
	WebhookToken string
	// Timeout は1通あたりの送信タイムアウト。
	Timeout time.Duration
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnvOr("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORTが不正です: %w", err)
	}

	timeout, err := time.ParseDuration(getEnvOr("NOTIFY_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_TIMEOUTが不正です: %w", err)
	}

	username := os.Getenv("EMAIL_USER")
	mail := MailConfig{
		SMTPHost:     getEnvOr("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     smtpPort,
		Username:     username,
		Password:     os.Getenv("EMAIL_PASS"),
		From:         getEnvOr("MAIL_FROM", username),
		WebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		WebhookToken: os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		Timeout:      timeout,
	}
	mail.Transport, err = resolveTransport(os.Getenv("MAIL_TRANSPORT"), mail)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           getEnvOr("PORT", "5000"),
		DatabasePath:   getEnvOr("DATABASE_PATH", "/data/userhub.db"),
		AllowedOrigins: splitList(getEnvOr("CORS_ALLOWED_ORIGINS", "*")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Mail:           mail,
	}, nil
}

// resolveTransport は配送方式を決定する。
// 未指定の場合、SMTP認証情報があればsmtp、なければlogとする。
func resolveTransport(raw string, mail MailConfig) (MailTransport, error) {
	if raw == "" {
		if mail.Username != "" && mail.Password != "" {
			return MailTransportSMTP, nil
		}
		return MailTransportLog, nil
	}

	switch t := MailTransport(strings.ToLower(raw)); t {
	case MailTransportSMTP:
		if mail.Username == "" || mail.Password == "" {
			return "", errors.New("MAIL_TRANSPORT=smtp にはEMAIL_USERとEMAIL_PASSが必要です")
		}
		return t, nil
	case MailTransportWebhook:
		if mail.WebhookURL == "" {
			return "", errors.New("MAIL_TRANSPORT=webhook にはNOTIFY_WEBHOOK_URLが必要です")
		}
		return t, nil
	case MailTransportLog:
		return t, nil
	default:
		return "", fmt.Errorf("MAIL_TRANSPORTが不正です: %q", raw)
	}
}

// AuthEnabled はAPIにJWT認証を要求するかどうかを返す。
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの文字列をトリムしてスライスに変換する。
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
