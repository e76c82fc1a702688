package rdb

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultURL is used when IOTOPS_STATE_URL is empty.
const DefaultURL = "sqlite:./iotops.db"

// OpenFromURL opens a GORM DB based on a simple db-url string.
// Supported:
//   - sqlite:<dsn>   e.g., sqlite:./iotops.db or sqlite::memory:
//   - sqlite3:<dsn>  alias of sqlite
func OpenFromURL(dbURL string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	for _, scheme := range []string{"sqlite:", "sqlite3:"} {
		if strings.HasPrefix(dbURL, scheme) {
			dsn := strings.TrimPrefix(dbURL, scheme)
			if dsn == "" {
				dsn = "./iotops.db"
			}
			return gorm.Open(sqlite.Open(dsn), cfg)
		}
	}
	return nil, fmt.Errorf("unsupported db scheme: %s", dbURL)
}

// AutoMigrate applies schema migrations for all RDB models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&StateRecord{}, &RunRecord{})
}
