package stream

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/warehouse"
)

const consumeTimeout = 60 * time.Second

// setupKafka starts a single-node Kafka container and returns its
// broker addresses.
func setupKafka(ctx context.Context, t *testing.T) []string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("salescube-test"),
	)
	require.NoError(t, err, "Failed to start kafka container")

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "Failed to resolve kafka brokers")

	return brokers
}

func produceMessages(ctx context.Context, t *testing.T, brokers []string, topic string, payloads ...string) {
	t.Helper()

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	defer func() { _ = writer.Close() }()

	messages := make([]kafka.Message, 0, len(payloads))
	for _, payload := range payloads {
		messages = append(messages, kafka.Message{Value: []byte(payload)})
	}

	// Topic creation can race the first produce on a fresh broker.
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		if err = writer.WriteMessages(ctx, messages...); err == nil {
			return
		}

		time.Sleep(time.Second)
	}

	require.NoError(t, err, "Failed to produce messages")
}

func TestConsumer_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := &warehouse.Connection{DB: testDB.Connection}
	store, err := warehouse.NewSalesStore(conn)
	require.NoError(t, err)

	_, err = testDB.Connection.ExecContext(ctx, `
		INSERT INTO DimDate (DateKey, FullDate, Year, Quarter, Month, Day, DayOfWeek, MonthName, QuarterName)
		VALUES (20190115, '2019-01-15', 2019, 1, 1, 15, 2, 'January', 'Q1')`)
	require.NoError(t, err)

	_, err = testDB.Connection.ExecContext(ctx, `
		INSERT INTO DimShop (ShopID, ShopName, CityID, CityName, RegionID, RegionName, CountryID, CountryName)
		VALUES (1, 'Shop Hamburg', 1, 'Hamburg', 1, 'North', 1, 'Germany')`)
	require.NoError(t, err)

	_, err = testDB.Connection.ExecContext(ctx, `
		INSERT INTO DimProduct (ArticleID, ArticleName, Price, ProductGroupID, ProductGroupName,
		                        ProductFamilyID, ProductFamilyName, ProductCategoryID, ProductCategoryName)
		VALUES (1, 'Pale Ale', 2.50, 1, 'Ale', 1, 'Beer', 1, 'Beverages')`)
	require.NoError(t, err)

	brokers := setupKafka(ctx, t)

	cfg := &Config{
		Brokers:  brokers,
		Topic:    "sales.transactions.test",
		GroupID:  "salescube-test",
		MinBytes: 1,
		MaxBytes: 10e6,
	}

	produceMessages(ctx, t, brokers, cfg.Topic,
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":3,"revenue":7.5}`,
		`this is not an event`,
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":2,"revenue":5.0}`,
	)

	consumer, err := NewConsumer(cfg, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = consumer.Close() })

	runCtx, cancel := context.WithTimeout(ctx, consumeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- consumer.Run(runCtx) }()

	// Wait for both valid events to land, then shut down the consumer.
	deadline := time.Now().Add(consumeTimeout)
	for {
		var count int
		require.NoError(t, testDB.Connection.QueryRow("SELECT COUNT(*) FROM FactSales").Scan(&count))

		if count >= 2 {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for facts to be consumed")
		}

		time.Sleep(500 * time.Millisecond)
	}

	cancel()
	require.ErrorIs(t, <-done, ErrConsumerClosed)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalTransactions)
	assert.InDelta(t, 12.5, summary.TotalRevenue, 1e-9)
}
