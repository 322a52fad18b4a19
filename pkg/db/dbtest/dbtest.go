// Package dbtest opens throwaway SQLite databases for repository and service
// tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
)

// Open returns an in-memory database private to t with every table migrated.
// A single connection serializes transactions the way row locks do on Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	))
	return conn
}

// SeedUser inserts a user with the given username.
func SeedUser(t *testing.T, conn *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// SeedListing inserts an available listing owned by seller.
func SeedListing(t *testing.T, conn *gorm.DB, seller models.User, title string, priceCents int) models.Listing {
	t.Helper()
	now := time.Now().UTC()
	listing := models.Listing{
		ID:              uuid.New(),
		SellerID:        seller.ID,
		Title:           title,
		Description:     title + " made fresh",
		PriceCents:      priceCents,
		PickupStartTime: now.Add(time.Hour),
		PickupEndTime:   now.Add(3 * time.Hour),
		PickupAddress:   "12 Market St",
		Status:          enums.ListingStatusAvailable,
	}
	require.NoError(t, conn.Omit("Seller").Create(&listing).Error)
	listing.Seller = seller
	return listing
}
