package user

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/userhub/pkg/event"
	"github.com/nao1215/userhub/pkg/middleware"
)

// deletedMessage は削除APIが返す確認メッセージ。
const deletedMessage = "User deleted"

// Handler はユーザーAPIのHTTPハンドラ群。
type Handler struct {
	// repo はユーザーレコードの保存先。
	repo Repository
	// publisher は作成・更新・削除イベントの配信先。
	publisher event.Publisher
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(repo Repository, publisher event.Publisher) *Handler {
	return &Handler{repo: repo, publisher: publisher}
}

// RegisterRoutes は/users配下のルーティングを設定する。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		// ユーザー一覧取得
		users.GET("", h.handleList())
		// ユーザー作成
		users.POST("", h.handleCreate())
		// 州ごとの集計
		users.GET("/analytics/stats", h.handleStats())
		// ユーザー詳細取得
		users.GET("/:id", h.handleGet())
		// ユーザー更新
		users.PUT("/:id", h.handleUpdate())
		// ユーザー削除
		users.DELETE("/:id", h.handleDelete())
	}
}

// createUserRequest はユーザー作成リクエストのJSON構造。
// 必須チェックはストア側の検証で行う。
type createUserRequest struct {
	// Name はユーザー名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// State は所属する州。
	State string `json:"state"`
}

// updateUserRequest はユーザー更新リクエストのJSON構造。
// 省略されたフィールドは更新しない。
type updateUserRequest struct {
	// Name はユーザー名。
	Name *string `json:"name"`
	// Email はメールアドレス。
	Email *string `json:"email"`
	// State は所属する州。
	State *string `json:"state"`
}

// userResponse はユーザーのJSONレスポンス構造。
// キー名は既存のフロントエンドに合わせている。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"_id"`
	// Name はユーザー名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// State は所属する州。
	State string `json:"state"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"createdAt"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updatedAt"`
}

// stateCountResponse は州ごとの集計のJSONレスポンス構造。
type stateCountResponse struct {
	// State は州名。
	State string `json:"_id"`
	// Count はその州のユーザー数。
	Count int64 `json:"count"`
}

// toUserResponse はRecordをJSONレスポンスに変換する。
func toUserResponse(rec *Record) userResponse {
	return userResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		State:     rec.State,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// bindJSON はリクエストボディをreqに読み込む。空のボディは許容する。
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondError はストアのエラーをHTTPステータスに変換して返す。
// 想定外のエラーはログに記録し、詳細をクライアントに返さない。
func respondError(c *gin.Context, err error, action string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%sに失敗しました", action)})
		log.Printf("%sエラー: %v", action, err)
	}
}

// handleList はユーザー一覧取得を処理するハンドラを返す。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.repo.List(c.Request.Context())
		if err != nil {
			respondError(c, err, "ユーザー一覧の取得")
			return
		}

		responses := make([]userResponse, 0, len(records))
		for i := range records {
			responses = append(responses, toUserResponse(&records[i]))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleGet はユーザー詳細取得を処理するハンドラを返す。
func (h *Handler) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.repo.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "ユーザーの取得")
			return
		}
		c.JSON(http.StatusOK, toUserResponse(rec))
	}
}

// handleCreate はユーザー作成を処理するハンドラを返す。
// 作成に成功した場合はUserCreatedイベントを通知する。
func (h *Handler) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		rec, err := h.repo.Create(c.Request.Context(), CreateParams{
			Name:  req.Name,
			Email: req.Email,
			State: req.State,
		})
		if err != nil {
			respondError(c, err, "ユーザーの作成")
			return
		}

		log.Printf("ユーザーを作成しました: id=%s by=%q", rec.ID, middleware.GetSubject(c))
		h.publish(rec, event.TypeUserCreated)

		c.JSON(http.StatusCreated, toUserResponse(rec))
	}
}

// handleUpdate はユーザー更新を処理するハンドラを返す。
// リクエストに含まれるフィールドのみを更新し、UserUpdatedイベントを通知する。
func (h *Handler) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateUserRequest
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		rec, err := h.repo.Update(c.Request.Context(), c.Param("id"), UpdateParams{
			Name:  req.Name,
			Email: req.Email,
			State: req.State,
		})
		if err != nil {
			respondError(c, err, "ユーザーの更新")
			return
		}

		log.Printf("ユーザーを更新しました: id=%s by=%q", rec.ID, middleware.GetSubject(c))
		h.publish(rec, event.TypeUserUpdated)

		c.JSON(http.StatusOK, toUserResponse(rec))
	}
}

// handleDelete はユーザー削除を処理するハンドラを返す。
// 存在しないIDでも200を返す。実際に削除した場合のみUserDeletedイベントを通知する。
func (h *Handler) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "ユーザーの削除")
			return
		}

		if rec != nil {
			log.Printf("ユーザーを削除しました: id=%s by=%q", rec.ID, middleware.GetSubject(c))
			h.publish(rec, event.TypeUserDeleted)
		}

		c.JSON(http.StatusOK, gin.H{"message": deletedMessage})
	}
}

// handleStats は州ごとのユーザー数の集計を処理するハンドラを返す。
func (h *Handler) handleStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := h.repo.CountByState(c.Request.Context())
		if err != nil {
			respondError(c, err, "集計")
			return
		}

		responses := make([]stateCountResponse, 0, len(counts))
		for _, sc := range counts {
			responses = append(responses, stateCountResponse{State: sc.State, Count: sc.Count})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// publish はユーザーイベントを生成して通知先に渡す。
// 失敗してもログに記録するだけで処理は継続する。
func (h *Handler) publish(rec *Record, eventType event.Type) {
	if h.publisher == nil {
		return
	}

	evt, err := event.NewUserEvent(rec.ID, eventType, event.UserData{
		Name:  rec.Name,
		Email: rec.Email,
		State: rec.State,
	})
	if err != nil {
		log.Printf("イベント生成エラー: %v", err)
		return
	}
	h.publisher.Publish(evt)
}
