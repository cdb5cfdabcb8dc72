package notification

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// maxListLimit は配送記録一覧の最大件数。
const maxListLimit = 100

// Handler は配送記録APIのHTTPハンドラ。
type Handler struct {
	// deliveries は配送記録の保存先。
	deliveries *DeliveryLog
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(deliveries *DeliveryLog) *Handler {
	return &Handler{deliveries: deliveries}
}

// RegisterRoutes は/notifications配下のルーティングを設定する。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		// 配送記録一覧取得
		notifications.GET("", h.handleList())
	}
}

// deliveryResponse は配送記録のJSONレスポンス構造。
type deliveryResponse struct {
	// ID は配送記録の一意識別子。
	ID string `json:"id"`
	// Recipient は宛先のメールアドレス。
	Recipient string `json:"recipient"`
	// Subject は件名。
	Subject string `json:"subject"`
	// Body は本文。
	Body string `json:"body"`
	// EventType は契機となったイベントの種類。
	EventType string `json:"eventType,omitempty"`
	// AggregateID は契機となったユーザーのID。
	AggregateID string `json:"aggregateId,omitempty"`
	// Status は配送結果（sent / failed）。
	Status string `json:"status"`
	// Error は失敗時のエラーメッセージ。
	Error string `json:"error,omitempty"`
	// CreatedAt は記録日時（RFC3339形式）。
	CreatedAt string `json:"createdAt"`
}

// toDeliveryResponse は配送記録をJSONレスポンスに変換する。
func toDeliveryResponse(d Delivery) deliveryResponse {
	return deliveryResponse{
		ID:          d.ID,
		Recipient:   d.Recipient,
		Subject:     d.Subject,
		Body:        d.Body,
		EventType:   string(d.EventType),
		AggregateID: d.AggregateID,
		Status:      string(d.Status),
		Error:       d.Error,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339Nano),
	}
}

// handleList は配送記録を新しい順に返すハンドラ。
// クエリパラメータlimitで件数を絞り込める（最大100件）。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxListLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxListLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1から100の整数で指定してください"})
				return
			}
			limit = n
		}

		deliveries, err := h.deliveries.List(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配送記録の取得に失敗しました"})
			log.Printf("配送記録取得エラー: %v", err)
			return
		}

		responses := make([]deliveryResponse, 0, len(deliveries))
		for _, d := range deliveries {
			responses = append(responses, toDeliveryResponse(d))
		}
		c.JSON(http.StatusOK, responses)
	}
}
