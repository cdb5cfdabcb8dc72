// Package server はuserhubのHTTPサーバーを組み立てる。
//
// 設定からデータベース・通知の送信手段・ルーティングを構成し、
// シグナル受信時には処理中のリクエストと送信中の通知の完了を待ってから停止する。
package server
