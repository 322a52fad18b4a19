package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// each pooled connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return NewFromConn(conn)
}

func countWidgets(t *testing.T, c *Client, name string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&widget{}).Where("name = ?", name).Count(&n).Error)
	return n
}

func TestWithTx(t *testing.T) {
	c := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, c.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countWidgets(t, c, "kept"))

	err := c.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Name: "dropped"}).Error)
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")
	assert.Zero(t, countWidgets(t, c, "dropped"))

	assert.Panics(t, func() {
		_ = c.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Name: "panicked"}).Error)
			panic("handler bug")
		})
	})
	assert.Zero(t, countWidgets(t, c, "panicked"))
}

func TestPingAndDialect(t *testing.T) {
	c := openSQLite(t)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "sqlite3", c.Dialect())
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(config.DBConfig{SQLitePath: "x.db"}, config.FeatureFlagsConfig{UseSQLite: true})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = dialectorFor(config.DBConfig{DSN: "postgres://u@h/db"}, config.FeatureFlagsConfig{})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = dialectorFor(config.DBConfig{}, config.FeatureFlagsConfig{})
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	c := openSQLite(t)
	require.NoError(t, c.DB().Create(&widget{Name: "dup"}).Error)
	sqliteErr := c.DB().Create(&widget{Name: "dup"}).Error

	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "carts_buyer_id_key"}
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"sqlite", sqliteErr, "", true},
		{"pgx", pgxErr, "carts_buyer_id_key", true},
		{"pgx wrapped", fmt.Errorf("insert cart: %w", pgxErr), "", true},
		{"pgx other constraint", pgxErr, "orders_pkey", false},
		{"pgx other code", &pgconn.PgError{Code: "23503"}, "", false},
		{"pq", &pq.Error{Code: "23505", Constraint: "orders_pkey"}, "", true},
		{"plain", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint), tc.name)
	}
}

func TestQueryLogger(t *testing.T) {
	var buf bytes.Buffer
	qlog := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf}), 100*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	qlog.Trace(ctx, time.Now(), stmt, nil)
	qlog.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len(), buf.String())

	qlog.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow sql statement")

	buf.Reset()
	qlog.Trace(ctx, time.Now(), stmt, errors.New("relation does not exist"))
	assert.Contains(t, buf.String(), "relation does not exist")
}
