// Package integration runs the persistence layer against a real MySQL
// started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/migration"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlUser     = "zique"
	mysqlPassword = "zique-test"
	mysqlDatabase = "zique_test"
)

// TestDB is a migrated MySQL database in its own container
type TestDB struct {
	*persistence.Database
	Config    config.DatabaseConfig
	Container testcontainers.Container
	t         *testing.T
}

// NewTestDB starts MySQL, applies the embedded migrations and connects GORM.
// The test is skipped in -short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mysqlImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": mysqlPassword,
				"MYSQL_USER":          mysqlUser,
				"MYSQL_PASSWORD":      mysqlPassword,
				"MYSQL_DATABASE":      mysqlDatabase,
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start MySQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:          "mysql",
		Host:            host,
		Port:            port.Int(),
		User:            mysqlUser,
		Password:        mysqlPassword,
		DBName:          mysqlDatabase,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
		SlowThreshold:   time.Second,
	}

	runMigrations(t, cfg)

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := persistence.NewDatabase(&cfg, zap.NewNop(), level)
	require.NoError(t, err, "Failed to connect to MySQL")
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{Database: db, Config: cfg, Container: container, t: t}
}

// Migrator opens a migrator on a fresh multi-statement connection
func (tdb *TestDB) Migrator() *migration.Migrator {
	tdb.t.Helper()
	m, sqlDB := openMigrator(tdb.t, tdb.Config)
	tdb.t.Cleanup(func() {
		_ = m.Close()
		_ = sqlDB.Close()
	})
	return m
}

// CleanTables empties the data tables, keeping the schema and seed catalog
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range []string{
		"settlement_records", "cost_prices", "sub_account_stores", "sub_accounts",
		"stores", "users", "admins", "plugins",
	} {
		require.NoError(tdb.t, tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error)
	}
}

func runMigrations(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	m, sqlDB := openMigrator(t, cfg)
	defer func() {
		_ = m.Close()
		_ = sqlDB.Close()
	}()
	require.NoError(t, m.Up(), "Failed to run migrations")
}

func openMigrator(t *testing.T, cfg config.DatabaseConfig) (*migration.Migrator, *sql.DB) {
	t.Helper()
	sqlDB, err := sql.Open("mysql", cfg.MigrateDSN())
	require.NoError(t, err)

	// the server may still be finishing startup after the log line
	require.Eventually(t, func() bool { return sqlDB.Ping() == nil }, time.Minute, time.Second)

	m, err := migration.New(sqlDB, migration.Source(""), zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	return m, sqlDB
}
