package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
)

// messageWriter は kafka.Writer のうち送信に使う部分
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher は予約のライフサイクルイベントを Kafka に送信する
// 同じ予約のメッセージは予約IDをキーにして同じパーティションに送る
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher は brokers と topic から Publisher を作成する
// 送信は非同期で行い、失敗はログに残す
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Kafkaへの送信に失敗",
					zap.String("topic", topic),
					zap.Int("messages", len(messages)),
					zap.Error(err),
				)
			}
		},
	}
	logger.Info("Kafka publisher を設定しました", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Publisher{writer: w, topic: topic}
}

// Publish はメッセージをJSONに変換して送信する
func (p *Publisher) Publish(ctx context.Context, msg booking.LifecycleEvent) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("メッセージの変換に失敗: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.BookingID),
		Value: value,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("トピック %s への送信に失敗: %w", p.topic, err)
	}
	return nil
}

// Close は未送信のメッセージを送り切ってから閉じる
func (p *Publisher) Close() error {
	return p.writer.Close()
}
