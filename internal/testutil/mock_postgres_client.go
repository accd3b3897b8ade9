package testutil

import (
	"context"

	"github.com/ubi-mobility/payment-core/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient satisfies postgres.IClient for service tests backed by
// in-memory stores. WithTx runs the function directly; the in-memory stores
// have no transactional semantics to roll back.
type MockPostgresClient struct{}

func NewMockPostgresClient() postgres.IClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *MockPostgresClient) GetQuerier(ctx context.Context) postgres.Querier {
	return nil
}
