package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/segmentio/kafka-go"

	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/etl"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// ErrConsumerClosed is returned when Run exits because the context was
// canceled or the reader was closed.
var ErrConsumerClosed = errors.New("consumer closed")

// FactWriter resolves dimension keys and persists facts.
type FactWriter interface {
	ShopKeyByName(ctx context.Context, name string) (int, error)
	ProductKeyByArticle(ctx context.Context, article string) (int, error)
	InsertFact(ctx context.Context, fact warehouse.Fact) error
}

// Compile-time interface verification.
var _ FactWriter = (*warehouse.SalesStore)(nil)

// Consumer reads sale events from a Kafka topic and inserts the
// corresponding facts. Messages that cannot be turned into a fact are
// logged and committed so the partition keeps moving; only persistence
// failures stop the consumer.
type Consumer struct {
	reader *kafka.Reader
	writer FactWriter
	logger *slog.Logger
}

// NewConsumer creates a consumer over a validated configuration.
func NewConsumer(cfg *Config, writer FactWriter) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
	})

	return &Consumer{
		reader: reader,
		writer: writer,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// Run consumes messages until the context is canceled. It returns
// ErrConsumerClosed on a clean shutdown and the underlying error when
// the warehouse rejects a fact.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ErrConsumerClosed
			}

			return fmt.Errorf("fetching message: %w", err)
		}

		inserted, err := c.handleMessage(ctx, msg.Value)
		if err != nil {
			// Leave the offset uncommitted so the message is retried
			// after the warehouse recovers.
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("committing offset: %w", err)
		}

		if inserted {
			c.logger.Debug("fact inserted",
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
		}
	}
}

// handleMessage turns one payload into a fact. It reports inserted=false
// with a nil error for messages that should be skipped and committed.
func (c *Consumer) handleMessage(ctx context.Context, value []byte) (bool, error) {
	event, err := DecodeSaleEvent(value)
	if err != nil {
		c.logger.Warn("skipping event", slog.String("error", err.Error()))

		return false, nil
	}

	dateKey, err := etl.ParseSaleDate(event.Date)
	if err != nil {
		c.logger.Warn("skipping event", slog.String("error", err.Error()))

		return false, nil
	}

	shopKey, err := c.writer.ShopKeyByName(ctx, event.Shop)
	if err != nil {
		if errors.Is(err, warehouse.ErrDimensionNotFound) {
			c.logger.Warn("skipping event: unknown shop", slog.String("shop", event.Shop))

			return false, nil
		}

		return false, err
	}

	productKey, err := c.writer.ProductKeyByArticle(ctx, event.Article)
	if err != nil {
		if errors.Is(err, warehouse.ErrDimensionNotFound) {
			c.logger.Warn("skipping event: unknown article", slog.String("article", event.Article))

			return false, nil
		}

		return false, err
	}

	fact := warehouse.Fact{
		DateKey:      dateKey,
		ShopKey:      shopKey,
		ProductKey:   productKey,
		QuantitySold: event.Sold,
		Revenue:      event.Revenue,
	}

	if err := c.writer.InsertFact(ctx, fact); err != nil {
		return false, err
	}

	return true, nil
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
