// Package middleware provides HTTP middleware components for the SalesCube API.
package middleware

import (
	"context"

	"github.com/salescube-io/salescube/internal/warehouse"
)

// MockAPIKeyStore is a mock implementation of warehouse.APIKeyStore for testing.
type MockAPIKeyStore struct {
	FindByKeyFunc    func(ctx context.Context, key string) (*warehouse.Key, bool)
	AddFunc          func(ctx context.Context, apiKey *warehouse.Key) error
	UpdateFunc       func(ctx context.Context, apiKey *warehouse.Key) error
	DeleteFunc       func(ctx context.Context, keyID string) error
	ListByClientFunc func(ctx context.Context, clientID string) ([]*warehouse.Key, error)
}

// FindByKey implements warehouse.APIKeyStore.FindByKey.
func (m *MockAPIKeyStore) FindByKey(ctx context.Context, key string) (*warehouse.Key, bool) {
	if m.FindByKeyFunc != nil {
		return m.FindByKeyFunc(ctx, key)
	}

	return nil, false
}

// Add implements warehouse.APIKeyStore.Add.
func (m *MockAPIKeyStore) Add(ctx context.Context, apiKey *warehouse.Key) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, apiKey)
	}

	return nil
}

// Update implements warehouse.APIKeyStore.Update.
func (m *MockAPIKeyStore) Update(ctx context.Context, apiKey *warehouse.Key) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, apiKey)
	}

	return nil
}

// Delete implements warehouse.APIKeyStore.Delete.
func (m *MockAPIKeyStore) Delete(ctx context.Context, keyID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keyID)
	}

	return nil
}

// ListByClient implements warehouse.APIKeyStore.ListByClient.
func (m *MockAPIKeyStore) ListByClient(ctx context.Context, clientID string) ([]*warehouse.Key, error) {
	if m.ListByClientFunc != nil {
		return m.ListByClientFunc(ctx, clientID)
	}

	return []*warehouse.Key{}, nil
}
