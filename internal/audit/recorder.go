package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Recorder 审计事件出口：结构化日志一份，Redis Stream 一份（供下游消费）。
// Stream 写失败只告警，不影响业务事务（事务已提交才会走到这里）
type Recorder struct {
	logger *zap.Logger
	client *redis.Client // nil 则只写日志
	stream string
}

func NewRecorder(logger *zap.Logger, client *redis.Client, stream string) *Recorder {
	return &Recorder{logger: logger, client: client, stream: stream}
}

// Event 记录一条审计事件
// event: "certificate.completed" / "transfer.acknowledged" 等
func (r *Recorder) Event(ctx context.Context, event string, actorID string, details map[string]any) {
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("actor_id", actorID),
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	r.logger.Info("audit event", fields...)

	if r.client == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		r.logger.Warn("audit: marshal details failed", zap.String("event", event), zap.Error(err))
		return
	}
	_, err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"event":     event,
			"actor_id":  actorID,
			"details":   string(payload),
			"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
		},
	}).Result()
	if err != nil {
		r.logger.Warn("audit: stream publish failed", zap.String("event", event), zap.Error(err))
	}
}
