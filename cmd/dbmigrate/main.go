package main

import (
	"flag"
	"fmt"
	"log"

	"gorm.io/gorm"

	"tg-warden/internal/config"
	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	db := storage.GetDB()
	if db == nil {
		log.Fatalf("Failed to get database connection")
	}

	// Perform requested action
	switch *action {
	case "migrate":
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		if err := checkStatus(db); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func allModels() []interface{} {
	return []interface{}{
		&models.UserRecord{},
		&models.SanctionRecord{},
		&models.ChatConfig{},
	}
}

// migrateDatabase creates or updates all tables
func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(allModels()...)
}

// resetDatabase drops and recreates all tables
func resetDatabase(db *gorm.DB) error {
	for _, model := range allModels() {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("drop table for %T: %w", model, err)
		}
	}
	return migrateDatabase(db)
}

// checkStatus reports which tables exist and their row counts
func checkStatus(db *gorm.DB) error {
	for _, model := range allModels() {
		if !db.Migrator().HasTable(model) {
			log.Printf("%T: table missing", model)
			continue
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			return fmt.Errorf("count rows for %T: %w", model, err)
		}
		log.Printf("%T: %d rows", model, count)
	}
	return nil
}
