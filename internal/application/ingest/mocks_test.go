package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/storefront"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

// MockOrderRepository is a mock implementation of orders.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Upsert(ctx context.Context, order *orders.Order) (uuid.UUID, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) FindByExternalID(ctx context.Context, vendorID, externalOrderID int64) (*orders.Order, error) {
	args := m.Called(ctx, vendorID, externalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkConverted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockConnectionProvider is a mock implementation of storefront.ConnectionProvider
type MockConnectionProvider struct {
	mock.Mock
}

func (m *MockConnectionProvider) FindByShopDomain(ctx context.Context, shopDomain string) (*storefront.ShopConnection, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.ShopConnection), args.Error(1)
}

func (m *MockConnectionProvider) FindByVendor(ctx context.Context, vendorID int64) (*storefront.ShopConnection, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.ShopConnection), args.Error(1)
}

func (m *MockConnectionProvider) ListActive(ctx context.Context) ([]storefront.ShopConnection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.ShopConnection), args.Error(1)
}

// MockCatalogResolver is a mock implementation of orders.CatalogResolver
type MockCatalogResolver struct {
	mock.Mock
}

func (m *MockCatalogResolver) ResolveExternalProduct(ctx context.Context, externalProductID int64) (*orders.CatalogRef, error) {
	args := m.Called(ctx, externalProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.CatalogRef), args.Error(1)
}

// MockStorefrontClient is a mock implementation of storefront.Client
type MockStorefrontClient struct {
	mock.Mock
}

func (m *MockStorefrontClient) CreateFulfillment(ctx context.Context, conn *storefront.ShopConnection, req *storefront.FulfillmentRequest) (*storefront.Fulfillment, error) {
	args := m.Called(ctx, conn, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.Fulfillment), args.Error(1)
}

func (m *MockStorefrontClient) ListCarrierServices(ctx context.Context, conn *storefront.ShopConnection) ([]storefront.CarrierService, error) {
	args := m.Called(ctx, conn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.CarrierService), args.Error(1)
}

func (m *MockStorefrontClient) CreateCarrierService(ctx context.Context, conn *storefront.ShopConnection, input *storefront.CarrierServiceInput) (*storefront.CarrierService, error) {
	args := m.Called(ctx, conn, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.CarrierService), args.Error(1)
}

func (m *MockStorefrontClient) UpdateCarrierService(ctx context.Context, conn *storefront.ShopConnection, id int64, input *storefront.CarrierServiceInput) (*storefront.CarrierService, error) {
	args := m.Called(ctx, conn, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.CarrierService), args.Error(1)
}

func (m *MockStorefrontClient) DeleteCarrierService(ctx context.Context, conn *storefront.ShopConnection, id int64) error {
	args := m.Called(ctx, conn, id)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
