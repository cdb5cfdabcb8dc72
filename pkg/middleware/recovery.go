package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はハンドラ内のパニックを回復するGinミドルウェアを返す。
// 認証済みの場合は操作者もスタックトレースと合わせてログに残す。
// レスポンスを書き込む前であれば500エラーを返す。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Printf("[PANIC] %s %s subject=%q: %v\n%s",
				c.Request.Method, c.Request.URL.Path, GetSubject(c), r, debug.Stack())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "内部サーバーエラーが発生しました",
			})
		}()
		c.Next()
	}
}
