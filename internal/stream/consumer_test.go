package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescube-io/salescube/internal/warehouse"
)

// fakeFactWriter resolves a fixed set of dimension names and records
// every inserted fact.
type fakeFactWriter struct {
	shops     map[string]int
	products  map[string]int
	inserted  []warehouse.Fact
	insertErr error
}

func (f *fakeFactWriter) ShopKeyByName(_ context.Context, name string) (int, error) {
	key, ok := f.shops[name]
	if !ok {
		return 0, warehouse.ErrDimensionNotFound
	}

	return key, nil
}

func (f *fakeFactWriter) ProductKeyByArticle(_ context.Context, article string) (int, error) {
	key, ok := f.products[article]
	if !ok {
		return 0, warehouse.ErrDimensionNotFound
	}

	return key, nil
}

func (f *fakeFactWriter) InsertFact(_ context.Context, fact warehouse.Fact) error {
	if f.insertErr != nil {
		return f.insertErr
	}

	f.inserted = append(f.inserted, fact)

	return nil
}

func newTestConsumer(writer FactWriter) *Consumer {
	return &Consumer{
		writer: writer,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

func TestHandleMessage_InsertsFact(t *testing.T) {
	writer := &fakeFactWriter{
		shops:    map[string]int{"Shop Hamburg": 7},
		products: map[string]int{"Pale Ale": 11},
	}
	consumer := newTestConsumer(writer)

	inserted, err := consumer.handleMessage(context.Background(), []byte(
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":3,"revenue":7.5}`,
	))
	require.NoError(t, err)
	assert.True(t, inserted)

	require.Len(t, writer.inserted, 1)
	fact := writer.inserted[0]
	assert.Equal(t, 20190115, fact.DateKey)
	assert.Equal(t, 7, fact.ShopKey)
	assert.Equal(t, 11, fact.ProductKey)
	assert.Equal(t, 3, fact.QuantitySold)
	assert.InDelta(t, 7.5, fact.Revenue, 1e-9)
}

func TestHandleMessage_SkipsUnprocessableEvents(t *testing.T) {
	writer := &fakeFactWriter{
		shops:    map[string]int{"Shop Hamburg": 7},
		products: map[string]int{"Pale Ale": 11},
	}
	consumer := newTestConsumer(writer)

	payloads := []string{
		`not json at all`,
		`{"date":"2019-01-15","shop":"Shop Hamburg","article":"Pale Ale","sold":3,"revenue":7.5}`,
		`{"date":"15.01.2019","shop":"Unknown Shop","article":"Pale Ale","sold":3,"revenue":7.5}`,
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Unknown Article","sold":3,"revenue":7.5}`,
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":0,"revenue":7.5}`,
	}

	for _, payload := range payloads {
		inserted, err := consumer.handleMessage(context.Background(), []byte(payload))
		require.NoError(t, err, payload)
		assert.False(t, inserted, payload)
	}

	assert.Empty(t, writer.inserted)
}

func TestHandleMessage_PersistenceFailureIsFatal(t *testing.T) {
	insertErr := errors.New("connection reset")
	writer := &fakeFactWriter{
		shops:     map[string]int{"Shop Hamburg": 7},
		products:  map[string]int{"Pale Ale": 11},
		insertErr: insertErr,
	}
	consumer := newTestConsumer(writer)

	inserted, err := consumer.handleMessage(context.Background(), []byte(
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":3,"revenue":7.5}`,
	))
	assert.ErrorIs(t, err, insertErr)
	assert.False(t, inserted)
}
