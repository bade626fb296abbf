package database

import (
	"fmt"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the local store. SQLite is the default so a single binary
// owns its state; postgres is available for setups that already run one.
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.Path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&kvstore.Entry{},
	)
}
