package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/userhub/internal/config"
	"github.com/nao1215/userhub/internal/database"
	"github.com/nao1215/userhub/internal/notification"
	"github.com/nao1215/userhub/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSender は送信されたメッセージを記録し、errを返すSender。
type fakeSender struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *fakeSender) Messages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Message(nil), s.msgs...)
}

// testConfig はテスト用の設定を返す。
func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		DatabasePath:   database.MemoryPath,
		AllowedOrigins: []string{"*"},
		Mail: config.MailConfig{
			Transport: config.MailTransportLog,
			Timeout:   time.Second,
		},
	}
}

// setupTestServer はインメモリSQLiteとfakeSenderでサーバーを構築する。
func setupTestServer(t *testing.T, cfg *config.Config, sender notification.Sender) *Server {
	t.Helper()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return newServer(cfg, db, sender)
}

// drain は送信中の通知の完了を待つ。
func drain(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := s.notifier.Close(ctx); err != nil {
		t.Fatalf("通知の完了待ちに失敗: %v", err)
	}
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestHealthCheck はヘルスチェックエンドポイントの正常動作を検証する。
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t, testConfig(), &fakeSender{})

	w := doRequest(s, http.MethodGet, "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	result := parseJSON(t, w)
	if result["status"] != "ok" {
		t.Errorf("status: got %v, want ok", result["status"])
	}
	if result["service"] != "userhub" {
		t.Errorf("service: got %v, want userhub", result["service"])
	}
}

// TestUserLifecycleNotifications はユーザー操作ごとに通知が送られることを検証する。
func TestUserLifecycleNotifications(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	s := setupTestServer(t, testConfig(), sender)

	w := doRequest(s, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "state": "Kerala",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("作成: ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	id, _ := parseJSON(t, w)["_id"].(string)

	w = doRequest(s, http.MethodPut, "/api/users/"+id, "", map[string]string{"name": "Asha Menon"})
	if w.Code != http.StatusOK {
		t.Fatalf("更新: ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	w = doRequest(s, http.MethodPut, "/api/users/nonexistent", "", map[string]string{"name": "X"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("存在しないIDの更新: ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
	}

	w = doRequest(s, http.MethodDelete, "/api/users/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("削除: ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	w = doRequest(s, http.MethodDelete, "/api/users/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("2回目の削除: ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	drain(t, s)

	w = doRequest(s, http.MethodGet, "/api/events/aggregate/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("イベント履歴: ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	history := parseJSONArray(t, w)
	wantTypes := []string{"UserCreated", "UserUpdated", "UserDeleted"}
	if len(history) != len(wantTypes) {
		t.Fatalf("イベント履歴の件数: got %d, want %d", len(history), len(wantTypes))
	}
	for i, typ := range wantTypes {
		if history[i]["event_type"] != typ {
			t.Errorf("history[%d]: got %v, want %s", i, history[i]["event_type"], typ)
		}
	}

	subjects := map[string]int{}
	for _, m := range sender.Messages() {
		if m.To != "asha@example.com" {
			t.Errorf("宛先: got %s, want asha@example.com", m.To)
		}
		subjects[m.Subject]++
	}
	want := map[string]int{"Welcome!": 1, "Profile Updated": 1, "Account Deleted": 1}
	if len(subjects) != len(want) {
		t.Fatalf("通知: got %v, want %v", subjects, want)
	}
	for subject, n := range want {
		if subjects[subject] != n {
			t.Errorf("%s の通知数: got %d, want %d", subject, subjects[subject], n)
		}
	}
}

// TestNotificationFailureIsRecorded は通知の失敗がレスポンスに影響せず記録されることを検証する。
func TestNotificationFailureIsRecorded(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("smtp: connection refused")}
	s := setupTestServer(t, testConfig(), sender)

	w := doRequest(s, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "state": "Kerala",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusCreated)
	}
	id, _ := parseJSON(t, w)["_id"].(string)

	drain(t, s)

	w = doRequest(s, http.MethodGet, "/api/notifications", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	deliveries := parseJSONArray(t, w)
	if len(deliveries) != 1 {
		t.Fatalf("配送記録の件数: got %d, want 1", len(deliveries))
	}
	if deliveries[0]["status"] != "failed" {
		t.Errorf("status: got %v, want failed", deliveries[0]["status"])
	}
	if deliveries[0]["aggregateId"] != id {
		t.Errorf("aggregateId: got %v, want %s", deliveries[0]["aggregateId"], id)
	}
}

// TestJWTAuthentication はJWT_SECRET設定時の認証を検証する。
func TestJWTAuthentication(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	s := setupTestServer(t, cfg, &fakeSender{})

	t.Run("トークンなしはUnauthorized", func(t *testing.T) {
		t.Parallel()
		w := doRequest(s, http.MethodGet, "/api/users", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("有効なトークンならアクセスできる", func(t *testing.T) {
		t.Parallel()
		token, err := middleware.GenerateJWT("test-secret", "admin", time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT() error = %v", err)
		}
		w := doRequest(s, http.MethodGet, "/api/users", token, nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("ヘルスチェックは認証不要", func(t *testing.T) {
		t.Parallel()
		w := doRequest(s, http.MethodGet, "/health", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})
}

// TestCORSPreflight はCORSのプリフライトリクエストを検証する。
func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t, testConfig(), &fakeSender{})

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want *", got)
	}
}

// TestNewSender は配送方式ごとの送信手段の選択を検証する。
func TestNewSender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.MailConfig
		wantType string
		wantErr  bool
	}{
		{"smtp", config.MailConfig{Transport: config.MailTransportSMTP}, "*notification.SMTPSender", false},
		{"webhook", config.MailConfig{Transport: config.MailTransportWebhook, WebhookURL: "http://localhost"}, "*notification.WebhookSender", false},
		{"log", config.MailConfig{Transport: config.MailTransportLog}, "notification.LogSender", false},
		{"未指定はlog", config.MailConfig{}, "notification.LogSender", false},
		{"不明な方式はエラー", config.MailConfig{Transport: "pigeon"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := newSender(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newSender() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if gotType := fmt.Sprintf("%T", got); gotType != tt.wantType {
				t.Errorf("送信手段: got %s, want %s", gotType, tt.wantType)
			}
		})
	}
}

// TestRunGracefulShutdown はctxの終了でサーバーが停止することを検証する。
func TestRunGracefulShutdown(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t, testConfig(), &fakeSender{})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Runが停止しません")
	}
}
