// internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/metrics"
)

const EventEarningCredited = "earning.credited"

type EarningEvent struct {
	Type          string    `json:"type"`
	PurchaseID    uuid.UUID `json:"purchase_id"`
	OrderID       string    `json:"order_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	ItemID        uuid.UUID `json:"item_id"`
	Amount        int64     `json:"amount"`
	CreatorShare  int64     `json:"creator_share"`
	PlatformShare int64     `json:"platform_share"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers events after the ledger has committed. Delivery is best
// effort: callers log failures and never undo the payment because of them.
type Notifier interface {
	Publish(ctx context.Context, event EarningEvent) error
	Close() error
}

func NewNotifier(cfg config.KafkaConfig) (Notifier, error) {
	if len(cfg.Brokers) == 0 {
		logrus.Info("No Kafka brokers configured, earning events will only be logged")
		return NewLogNotifier(), nil
	}
	return NewKafkaNotifier(cfg)
}

// KafkaNotifier publishes events through an async producer keyed by seller,
// so one seller's events stay ordered within a partition.
type KafkaNotifier struct {
	producer sarama.AsyncProducer
	topic    string
	wg       sync.WaitGroup
}

func NewKafkaNotifier(cfg config.KafkaConfig) (*KafkaNotifier, error) {
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is empty")
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("error parsing kafka version: %w", err)
	}

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, newSaramaConfig(version, cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaNotifier(producer, cfg.Topic), nil
}

func newKafkaNotifier(producer sarama.AsyncProducer, topic string) *KafkaNotifier {
	n := &KafkaNotifier{producer: producer, topic: topic}

	n.wg.Add(1)
	go n.drainErrors()

	return n
}

func (n *KafkaNotifier) drainErrors() {
	defer n.wg.Done()
	for perr := range n.producer.Errors() {
		metrics.NotificationsDropped.Inc()
		logrus.WithError(perr.Err).WithField("topic", perr.Msg.Topic).Warn("Failed to deliver earning event")
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, event EarningEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(event.SellerID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("Event-Type"), Value: []byte(event.Type)},
		},
	}

	select {
	case n.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		metrics.NotificationsDropped.Inc()
		return ctx.Err()
	}
}

func (n *KafkaNotifier) Close() error {
	logrus.Info("Closing Kafka producer")
	err := n.producer.Close()
	n.wg.Wait()
	if err != nil {
		logrus.WithError(err).Error("Failed to close Kafka producer")
	}
	return err
}

func newSaramaConfig(version sarama.KafkaVersion, clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = version
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Retry.Max = 5
	return cfg
}

// LogNotifier writes events to the log when no broker is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(ctx context.Context, event EarningEvent) error {
	logrus.WithFields(logrus.Fields{
		"event":         event.Type,
		"purchase_id":   event.PurchaseID,
		"seller_id":     event.SellerID,
		"creator_share": event.CreatorShare,
		"currency":      event.Currency,
	}).Info("Earning credited")
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
