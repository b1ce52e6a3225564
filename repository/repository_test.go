package repository

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
