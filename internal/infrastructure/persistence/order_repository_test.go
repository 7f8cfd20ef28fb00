package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
)

// newTestDB opens an in-memory SQLite database with the full schema. The
// connection pool is pinned to one connection so every query sees the same
// in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&orders.Order{},
		&orders.LineItem{},
		&orders.CatalogItem{},
		&storefront.ShopConnection{},
	))
	return db
}

func buildOrder(upstreamUpdatedAt time.Time) *orders.Order {
	now := time.Now().UTC()
	return &orders.Order{
		VendorID:          42,
		ExternalOrderID:   450789469,
		Name:              "#1001",
		OrderNumber:       1001,
		Status:            orders.OrderStatusPaid,
		FinancialStatus:   orders.FinancialStatusPaid,
		FulfillmentStatus: orders.FulfillmentStatusNone,
		Currency:          "USD",
		SubtotalPrice:     decimal.RequireFromString("398.00"),
		TotalTax:          decimal.RequireFromString("11.94"),
		TotalShipping:     decimal.RequireFromString("12.50"),
		TotalPrice:        decimal.RequireFromString("422.44"),
		CustomerEmail:     "bob.norman@mail.example.com",
		CustomerName:      "Bob Norman",
		WebhookReceived:   true,
		PlacedAt:          now.Add(-time.Hour),
		UpstreamUpdatedAt: upstreamUpdatedAt,
		SyncedAt:          now,
		Items: []orders.LineItem{
			{
				ExternalLineID:    866550311766439020,
				ExternalProductID: 632910392,
				ExternalVariantID: 808950810,
				SKU:               "IPOD2008PINK",
				Name:              "IPod Nano - 8GB",
				UnitPrice:         decimal.RequireFromString("199.00"),
				Quantity:          2,
				LineTotal:         decimal.RequireFromString("398.00"),
			},
		},
	}
}

func TestOrderUpsert(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates order with items", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(450789469), stored.ExternalOrderID)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "IPOD2008PINK", stored.Items[0].SKU)
		assert.Equal(t, 2, stored.Items[0].Quantity)
	})

	t.Run("redelivery returns the same canonical ID", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		first, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		second, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)
		assert.Equal(t, first, second)

		var count int64
		require.NoError(t, repo.db.Model(&orders.Order{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("newer delivery refreshes mutable fields", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		updated := buildOrder(base.Add(time.Minute))
		updated.FulfillmentStatus = orders.FulfillmentStatusFulfilled
		updated.Status = orders.OrderStatusFulfilled
		updated.Items[0].FulfillmentStatus = orders.FulfillmentStatusFulfilled

		sameID, err := repo.Upsert(ctx, updated)
		require.NoError(t, err)
		assert.Equal(t, id, sameID)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, orders.OrderStatusFulfilled, stored.Status)
		assert.Equal(t, orders.FulfillmentStatusFulfilled, stored.FulfillmentStatus)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, orders.FulfillmentStatusFulfilled, stored.Items[0].FulfillmentStatus)
	})

	t.Run("stale delivery leaves order and items untouched", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		stale := buildOrder(base.Add(-time.Hour))
		stale.Status = orders.OrderStatusCancelled
		stale.Items[0].Quantity = 99

		sameID, err := repo.Upsert(ctx, stale)
		require.NoError(t, err)
		assert.Equal(t, id, sameID, "stale delivery still resolves the canonical ID")

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, orders.OrderStatusPaid, stored.Status)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, 2, stored.Items[0].Quantity)
	})

	t.Run("item merge preserves existing item IDs", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		originalItemID := stored.Items[0].ID

		updated := buildOrder(base.Add(time.Minute))
		updated.Items[0].Quantity = 3
		updated.Items[0].LineTotal = decimal.RequireFromString("597.00")
		updated.Items = append(updated.Items, orders.LineItem{
			ExternalLineID:    141249953214522974,
			ExternalProductID: 921728736,
			ExternalVariantID: 447654529,
			SKU:               "IPOD2009BLACK",
			Name:              "IPod Touch 8GB",
			UnitPrice:         decimal.RequireFromString("199.00"),
			Quantity:          1,
			LineTotal:         decimal.RequireFromString("199.00"),
		})

		_, err = repo.Upsert(ctx, updated)
		require.NoError(t, err)

		stored, err = repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.Len(t, stored.Items, 2)

		for _, item := range stored.Items {
			if item.ExternalProductID == 632910392 {
				assert.Equal(t, originalItemID, item.ID, "merged item keeps its row ID")
				assert.Equal(t, 3, item.Quantity)
			}
		}
	})

	t.Run("local catalog association survives redelivery", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		// Associate the line with a catalog record out of band.
		catalogID := uuid.New()
		require.NoError(t, repo.db.Model(&orders.LineItem{}).
			Where("order_id = ?", id).
			Update("catalog_id", catalogID).Error)

		// The redelivered payload carries no resolution.
		_, err = repo.Upsert(ctx, buildOrder(base.Add(time.Minute)))
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.Len(t, stored.Items, 1)
		require.NotNil(t, stored.Items[0].CatalogID)
		assert.Equal(t, catalogID, *stored.Items[0].CatalogID)
	})

	t.Run("incoming catalog resolution wins over empty", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		catalogID := uuid.New()
		resolved := buildOrder(base.Add(time.Minute))
		resolved.Items[0].CatalogID = &catalogID

		_, err = repo.Upsert(ctx, resolved)
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored.Items[0].CatalogID)
		assert.Equal(t, catalogID, *stored.Items[0].CatalogID)
	})
}

func TestOrderFind(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("finds by natural key", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		_, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		found, err := repo.FindByExternalID(ctx, 42, 450789469)
		require.NoError(t, err)
		assert.Equal(t, "#1001", found.Name)
		assert.Len(t, found.Items, 1)
	})

	t.Run("returns not found for unknown keys", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		_, err := repo.FindByExternalID(ctx, 42, 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestMarkConverted(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("flags an existing order", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))

		id, err := repo.Upsert(ctx, buildOrder(base))
		require.NoError(t, err)

		require.NoError(t, repo.MarkConverted(ctx, id))

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.ConvertedToInternalOrder)
	})

	t.Run("returns not found for unknown order", func(t *testing.T) {
		repo := NewGormOrderRepository(newTestDB(t))
		assert.ErrorIs(t, repo.MarkConverted(ctx, uuid.New()), shared.ErrNotFound)
	})
}
