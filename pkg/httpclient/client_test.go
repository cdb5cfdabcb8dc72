package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", WithTimeout(5*time.Second))
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(testPayload{Name: "response", Value: 200})
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload

		if err := client.PostJSON(context.Background(), "/hooks/mail", testPayload{Name: "request", Value: 100}, &result); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/hooks/mail" {
			t.Errorf("Path = %q, want %q", received.Path, "/hooks/mail")
		}

		var sentBody testPayload
		if err := json.Unmarshal(received.Body, &sentBody); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sentBody.Name != "request" || sentBody.Value != 100 {
			t.Errorf("sent body = %+v, want {request 100}", sentBody)
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("result = %+v, want {response 200}", result)
		}
	})

	t.Run("WithHeaderで設定したヘッダーが送信されること", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		client := New(ts.URL, WithHeader("Authorization", "Bearer hook-token"))
		if err := client.PostJSON(context.Background(), "", testPayload{}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "Bearer hook-token" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer hook-token")
		}
	})

	t.Run("サーバーが400エラーを返した場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/", testPayload{}, nil); err == nil {
			t.Fatal("400レスポンスに対してエラーが返されるべき")
		}
	})

	t.Run("サーバーが500エラーを返した場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/", testPayload{}, nil); err == nil {
			t.Fatal("500レスポンスに対してエラーが返されるべき")
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := New(ts.URL)
		if err := client.PostJSON(ctx, "/", testPayload{}, nil); err == nil {
			t.Fatal("キャンセル済みコンテキストに対してエラーが返されるべき")
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		if err := client.PostJSON(context.Background(), "/", testPayload{}, &result); err == nil {
			t.Fatal("不正なJSONに対してエラーが返されるべき")
		}
	})

	t.Run("シリアライズできないボディでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:0")
		if err := client.PostJSON(context.Background(), "/", make(chan int), nil); err == nil {
			t.Fatal("シリアライズ不可能なボディに対してエラーが返されるべき")
		}
	})
}
