// Package httpclient は外部サービスへJSONを送信するHTTPクライアントを提供する。
//
// 通知のWebhook配信など、外部エンドポイントへのPOSTを統一的に扱う。
package httpclient
