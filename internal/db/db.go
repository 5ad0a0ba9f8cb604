package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"labstation-backend/config"
	"labstation-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableRangeGuard {
		log.Println("Applying range-exclusion DDL...")
		if err := applyRangeGuardDDL(db); err != nil {
			log.Printf("Warning: failed to apply range-exclusion DDL: %v. Continuing without it.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs AutoMigrate for every model. Exposed so tests can migrate
// an in-memory database without a full Init.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Station{},
		&model.Reservation{},
		&model.QueueEntry{},
		&model.Notification{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedStations upserts the configured station registry by name. The
// registry is static; restarts reconcile names and descriptions but never
// delete stations that already carry a timeline.
func SeedStations(db *gorm.DB, stations []config.StationConfig) error {
	if len(stations) == 0 {
		return nil
	}

	rows := make([]model.Station, 0, len(stations))
	for _, s := range stations {
		status := model.StationStatus(s.Status)
		if status == "" {
			status = model.StationAvailable
		}
		rows = append(rows, model.Station{
			Name:        s.Name,
			Description: s.Description,
			Status:      status,
		})
	}

	log.Printf("Seeding %d stations...", len(rows))
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "status", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed stations failed: %w", err)
	}
	return nil
}

// applyRangeGuardDDL adds a PostgreSQL exclusion constraint backing the
// application-level overlap check: no two pending/active reservations on
// one station may intersect.
func applyRangeGuardDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_interval_valid CHECK (start_time < end_time);",

		// Lower bound closed, upper bound open.
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_no_overlap EXCLUDE USING GIST " +
			"(station_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&) " +
			"WHERE (status IN ('pending', 'active'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
