package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TransferEvent 待确认转移的通知载荷
type TransferEvent struct {
	EntryID        string `json:"entry_id"`
	EntryNumber    string `json:"entry_number"`
	EntryType      string `json:"entry_type"`
	FromLocationID string `json:"from_location_id,omitempty"`
	ToLocationID   string `json:"to_location_id"`
	ItemID         string `json:"item_id"`
	Quantity       int    `json:"quantity"`
	CreatedBy      string `json:"created_by"`
}

// Notifier 转移事件通知出口。fire-and-forget：失败不回滚业务
type Notifier interface {
	TransferPending(ctx context.Context, ev TransferEvent)
	TransferSettled(ctx context.Context, ev TransferEvent, accepted bool)
}

// WebhookNotifier 推送到外部 webhook（值班台/IM 机器人对接用）
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &WebhookNotifier{client: client, url: url, logger: logger}
}

func (n *WebhookNotifier) TransferPending(ctx context.Context, ev TransferEvent) {
	n.post(ctx, "transfer.pending", ev)
}

func (n *WebhookNotifier) TransferSettled(ctx context.Context, ev TransferEvent, accepted bool) {
	kind := "transfer.accepted"
	if !accepted {
		kind = "transfer.rejected"
	}
	n.post(ctx, kind, ev)
}

func (n *WebhookNotifier) post(ctx context.Context, kind string, ev TransferEvent) {
	body := map[string]any{
		"kind":      kind,
		"entry":     ev,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(n.url)
	if err != nil {
		n.logger.Warn("notify: webhook post failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("notify: webhook rejected",
			zap.String("kind", kind),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode())))
	}
}

// NopNotifier 禁用通知时注入
type NopNotifier struct{}

func (NopNotifier) TransferPending(context.Context, TransferEvent)        {}
func (NopNotifier) TransferSettled(context.Context, TransferEvent, bool) {}
