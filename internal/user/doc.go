// Package user はユーザーレコード管理の内部実装を提供する。
//
// ユーザー（氏名・メールアドレス・州）の作成・取得・更新・削除と、
// 州ごとの件数集計を行う。作成・更新・削除が成功した場合は
// 通知サービスへイベントを渡し、メール通知はレスポンスを待たせずに送信される。
package user
