// Package testutil shared helpers for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteDialector a private in-memory database for one test
func SQLiteDialector(t testing.TB) gorm.Dialector {
	t.Helper()
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString()))
}

// SinglePool limits gdb to one connection. An in-memory database shares one connection so
// concurrent writers queue instead of failing with "table is locked".
func SinglePool(t testing.TB, gdb *gorm.DB) {
	t.Helper()
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
}

// Logger discards output and records entries for assertions
func Logger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
