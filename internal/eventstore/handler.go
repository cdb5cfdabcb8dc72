package eventstore

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/userhub/pkg/event"
)

// maxListLimit は一覧取得の最大件数。
const maxListLimit = 100

// Handler はイベント履歴APIのHTTPハンドラ。
// イベントはユーザー操作からのみ生成されるため、追記APIは公開しない。
type Handler struct {
	// store はイベント履歴の保存先。
	store *Store
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes は/events配下のルーティングを設定する。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	{
		// AggregateIDによるイベント取得
		events.GET("/aggregate/:aggregate_id", h.handleGetEventsByAggregateID())
		// AggregateIDの最新バージョン取得
		events.GET("/aggregate/:aggregate_id/version", h.handleGetLatestVersion())
		// イベントタイプによるイベント取得
		events.GET("/type/:event_type", h.handleGetEventsByType())
		// 日時指定によるイベント取得（クエリパラメータ: since）
		events.GET("/since", h.handleGetEventsSince())
	}
}

// eventResponse はイベントのJSONレスポンス構造。
type eventResponse struct {
	// ID はイベントの一意識別子。
	ID string `json:"id"`
	// AggregateID は対象ユーザーのID。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType string `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType string `json:"event_type"`
	// Data はイベント固有のデータ。
	Data json.RawMessage `json:"data"`
	// Version は同一ユーザー内での連番。
	Version int64 `json:"version"`
	// CreatedAt は発生日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toEventResponses はイベントのスライスをJSONレスポンスのスライスに変換する。
func toEventResponses(events []event.Event) []eventResponse {
	responses := make([]eventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, eventResponse{
			ID:            e.ID,
			AggregateID:   e.AggregateID,
			AggregateType: string(e.AggregateType),
			EventType:     string(e.EventType),
			Data:          e.Data,
			Version:       e.Version,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return responses
}

// parseLimit はクエリパラメータlimitを解析する。未指定なら最大件数。
func parseLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return maxListLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, false
	}
	return n, true
}

// handleGetEventsByAggregateID は指定ユーザーのイベントをバージョン順に返すハンドラ。
func (h *Handler) handleGetEventsByAggregateID() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := h.store.ListByAggregateID(c.Request.Context(), c.Param("aggregate_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("イベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetLatestVersion は指定ユーザーの最新バージョンを返すハンドラ。
func (h *Handler) handleGetLatestVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")
		version, err := h.store.LatestVersion(c.Request.Context(), aggregateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "最新バージョンの取得に失敗しました"})
			log.Printf("最新バージョン取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"aggregate_id": aggregateID, "version": version})
	}
}

// handleGetEventsByType は指定した種類のイベントを新しい順に返すハンドラ。
func (h *Handler) handleGetEventsByType() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := parseLimit(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1から100の整数で指定してください"})
			return
		}

		events, err := h.store.ListByType(c.Request.Context(), event.Type(c.Param("event_type")), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("イベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsSince は指定日時より後のイベントを古い順に返すハンドラ。
// sinceはRFC3339形式で指定する。
func (h *Handler) handleGetEventsSince() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("since")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceパラメータが必要です"})
			return
		}
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceはRFC3339形式で指定してください"})
			return
		}

		limit, ok := parseLimit(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1から100の整数で指定してください"})
			return
		}

		events, err := h.store.ListSince(c.Request.Context(), since, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("イベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}
