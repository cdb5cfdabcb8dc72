package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/userhub/internal/config"
	"github.com/nao1215/userhub/internal/database"
	"github.com/nao1215/userhub/internal/eventstore"
	"github.com/nao1215/userhub/internal/notification"
	"github.com/nao1215/userhub/internal/user"
	"github.com/nao1215/userhub/pkg/event"
	"github.com/nao1215/userhub/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "userhub"

// shutdownTimeout はグレースフルシャットダウンの待ち時間の上限。
const shutdownTimeout = 30 * time.Second

// Server はuserhubのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// notifier はメール通知の送信を担う。
	notifier *notification.Notifier
}

// NewServer は設定から新しいサーバーを生成する。
// データベースを開いてマイグレーションを適用し、通知の送信手段を選択する。
func NewServer(cfg *config.Config) (*Server, error) {
	sender, err := newSender(cfg.Mail)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return newServer(cfg, db, sender), nil
}

// newServer は依存を受け取ってサーバーを組み立てる。
func newServer(cfg *config.Config, db *sql.DB, sender notification.Sender) *Server {
	deliveries := notification.NewDeliveryLog(db)
	notifier := notification.NewNotifier(sender,
		notification.WithDeliveryLog(deliveries),
		notification.WithTimeout(cfg.Mail.Timeout),
	)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// イベント履歴への追記を先に行い、メール送信は非同期で行う
	history := eventstore.NewStore(db)
	publisher := event.Fanout{history, notifier}

	s := &Server{
		router:   router,
		port:     cfg.Port,
		db:       db,
		notifier: notifier,
	}
	s.setupRoutes(cfg,
		user.NewHandler(user.NewStore(db), publisher),
		notification.NewHandler(deliveries),
		eventstore.NewHandler(history),
	)
	return s
}

// newSender は設定に応じた通知の送信手段を返す。
func newSender(cfg config.MailConfig) (notification.Sender, error) {
	switch cfg.Transport {
	case config.MailTransportSMTP:
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		}), nil
	case config.MailTransportWebhook:
		return notification.NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken), nil
	case config.MailTransportLog, "":
		return notification.LogSender{}, nil
	default:
		return nil, fmt.Errorf("未対応の配送方式: %q", cfg.Transport)
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(cfg *config.Config, users *user.Handler, notifications *notification.Handler, events *eventstore.Handler) {
	api := s.router.Group("/api")
	if cfg.AuthEnabled() {
		api.Use(middleware.JWTAuth(cfg.JWTSecret))
	}
	users.RegisterRoutes(api)
	notifications.RegisterRoutes(api)
	events.RegisterRoutes(api)

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了するまで処理を続ける。
// ctxの終了後は新規リクエストの受付を止め、処理中のリクエストと
// 送信中の通知の完了を待ってからデータベースを閉じる。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			if closeErr := s.shutdown(context.Background()); closeErr != nil {
				log.Printf("終了処理エラー: %v", closeErr)
			}
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
	case <-ctx.Done():
		log.Printf("シャットダウンを開始します")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("HTTPサーバーの停止に失敗: %w", err))
	}
	if err := s.shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// shutdown は送信中の通知の完了を待ち、データベースを閉じる。
func (s *Server) shutdown(ctx context.Context) error {
	var errs []error
	if err := s.notifier.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("データベースのクローズに失敗: %w", err))
	}
	return errors.Join(errs...)
}
