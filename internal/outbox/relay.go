package outbox

import (
	"context"
	"log"
	"time"

	"cv-match-go/internal/config"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second // 轮询outbox表的默认间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	defaultMaxRetryCount   = 5               // 消息发布失败的最大重试次数
)

// MessageRelay 轮询outbox表并把待投递的匹配完成事件发布到消息队列。
// 匹配记录和事件在同一事务落库，这里负责最终投递。
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          *log.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetryCount   int
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay 创建消息中继。cfg中的RetryInterval和MaxRetries
// 会覆盖默认的轮询间隔和重试上限。
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, cfg *config.RabbitMQConfig, logger *log.Logger) *MessageRelay {
	relay := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		maxRetryCount:   defaultMaxRetryCount,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("outbox-relay"),
	}
	if cfg != nil {
		relay.pollingInterval = config.GetDuration(cfg.RetryInterval, defaultPollingInterval)
		if cfg.MaxRetries > 0 {
			relay.maxRetryCount = cfg.MaxRetries
		}
	}
	return relay
}

// Start 启动后台轮询
func (r *MessageRelay) Start() {
	r.logger.Println("MessageRelay starting...")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Println("MessageRelay stopped.")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Printf("Error processing pending messages: %v", err)
				}
			}
		}
	}()
}

// Stop 优雅停止消息中继
func (r *MessageRelay) Stop() {
	r.logger.Println("MessageRelay stopping...")
	close(r.done)
}

// processPendingMessages 取一批PENDING消息，逐条发布并在同一事务中更新状态。
// 空轮询不创建追踪Span。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	// FOR UPDATE SKIP LOCKED：多实例部署时跳过他人锁定的行
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", "PENDING").
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		r.logger.Printf("Failed to fetch pending outbox messages: %v", err)
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Printf("Fetched %d pending messages to process.", len(messages))

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化投递
		)

		if err != nil {
			r.logger.Printf("Failed to publish message ID %d (AggregateID: %s): %v. Retries: %d", msg.ID, msg.AggregateID, err, msg.RetryCount+1)
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= r.maxRetryCount {
				msg.Status = "FAILED"
			}
		} else {
			msg.Status = "SENT"
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败则整个事务回滚，消息下次轮询重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			r.logger.Printf("Failed to update outbox message ID %d: %v", msg.ID, err)
			return err
		}
	}

	return tx.Commit().Error
}
