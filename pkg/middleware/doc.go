// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、CORS設定、任意で有効化するJWT認証を含む。
package middleware
