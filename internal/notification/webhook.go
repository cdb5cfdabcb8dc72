package notification

import (
	"context"
	"fmt"

	"github.com/nao1215/userhub/pkg/httpclient"
)

// WebhookSender はメールの内容をJSONでWebhookにPOSTするSender。
// 外部のメール配信サービスへの中継に使う。
type WebhookSender struct {
	client *httpclient.Client
}

var _ Sender = (*WebhookSender)(nil)

// NewWebhookSender は新しいWebhookSenderを生成する。
// tokenが空でなければBearerトークンとして付与する。
func NewWebhookSender(url, token string) *WebhookSender {
	var opts []httpclient.Option
	if token != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+token))
	}
	return &WebhookSender{client: httpclient.New(url, opts...)}
}

// Send はmsgをWebhookにPOSTする。2xx以外の応答は失敗とする。
func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	if err := s.client.PostJSON(ctx, "", msg, nil); err != nil {
		return fmt.Errorf("Webhook送信に失敗: %w", err)
	}
	return nil
}
