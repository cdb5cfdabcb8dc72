package notification

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nao1215/userhub/pkg/event"
)

// defaultTimeout は1通あたりの送信タイムアウトのデフォルト値。
const defaultTimeout = 30 * time.Second

// recordTimeout は配送記録の保存に使うタイムアウト。
const recordTimeout = 5 * time.Second

// Message は送信するメール。
type Message struct {
	// To は宛先のメールアドレス。
	To string `json:"to"`
	// Subject は件名。
	Subject string `json:"subject"`
	// Body は本文（プレーンテキスト）。
	Body string `json:"body"`
}

// Sender はメールの送信手段。
type Sender interface {
	// Send はmsgを1回だけ送信する。リトライは行わない。
	Send(ctx context.Context, msg Message) error
}

var _ event.Publisher = (*Notifier)(nil)

// Notifier はメール通知を非同期に送信する。
// 送信結果は呼び出し元に返さず、ログと配送記録に残す。
type Notifier struct {
	// sender は実際の送信手段。
	sender Sender
	// deliveries は配送記録の保存先。nilの場合は記録しない。
	deliveries *DeliveryLog
	// timeout は1通あたりの送信タイムアウト。
	timeout time.Duration
	// wg は送信中のgoroutineを追跡する。
	wg sync.WaitGroup
}

// Option はNotifierの設定を変更する関数。
type Option func(*Notifier)

// WithTimeout は1通あたりの送信タイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithDeliveryLog は配送記録の保存先を設定する。
func WithDeliveryLog(l *DeliveryLog) Option {
	return func(n *Notifier) {
		n.deliveries = l
	}
}

// NewNotifier は新しいNotifierを生成する。
func NewNotifier(sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		sender:  sender,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify はemailへメールをバックグラウンドで送信する。
// 呼び出し元をブロックせず、失敗しても何も返さない。
func (n *Notifier) Notify(email, subject, body string) {
	n.dispatch(Message{To: email, Subject: subject, Body: body}, "", "")
}

// Publish はユーザーイベントに対応するメールを送信する。
// 未対応のイベントや不正なデータはログに記録して無視する。
func (n *Notifier) Publish(evt *event.Event) {
	msg, err := messageFor(evt)
	if err != nil {
		log.Printf("[Notifier] イベントの変換に失敗: id=%s: %v", evt.ID, err)
		return
	}
	n.dispatch(msg, evt.EventType, evt.AggregateID)
}

// Close は送信中の通知がすべて終わるまで待つ。
// ctxが先に終了した場合はエラーを返す。
func (n *Notifier) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("送信中の通知の完了待ちに失敗: %w", ctx.Err())
	}
}

// dispatch はmsgの送信をgoroutineで開始する。
// 送信はリクエストのコンテキストから切り離し、独自のタイムアウトで行う。
func (n *Notifier) dispatch(msg Message, eventType event.Type, aggregateID string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		err := n.send(msg)
		if err != nil {
			log.Printf("[Notifier] メール送信に失敗: to=%s subject=%q: %v", msg.To, msg.Subject, err)
		} else {
			log.Printf("[Notifier] メールを送信しました: to=%s subject=%q", msg.To, msg.Subject)
		}

		n.record(msg, eventType, aggregateID, err)
	}()
}

// send はタイムアウト付きで1回だけ送信する。送信手段のパニックはエラーに変換する。
func (n *Notifier) send(msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Notifier] パニックが発生しました: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("送信中にパニックが発生: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	return n.sender.Send(ctx, msg)
}

// record は送信結果を配送記録に保存する。
func (n *Notifier) record(msg Message, eventType event.Type, aggregateID string, sendErr error) {
	if n.deliveries == nil {
		return
	}

	d := &Delivery{
		Recipient:   msg.To,
		Subject:     msg.Subject,
		Body:        msg.Body,
		EventType:   eventType,
		AggregateID: aggregateID,
		Status:      StatusSent,
	}
	if sendErr != nil {
		d.Status = StatusFailed
		d.Error = sendErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := n.deliveries.Record(ctx, d); err != nil {
		log.Printf("[Notifier] 配送記録の保存に失敗: %v", err)
	}
}
