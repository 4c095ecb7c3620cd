// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/ballotbox/database/models"
)

// GormConfig returns the gorm settings shared by the metadata plugins
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
}

// OpenPooled connects to a database server with a bounded connection pool
func OpenPooled(dialector gorm.Dialector, maxConns int) (*gorm.DB, error) {
	cfg := GormConfig()
	cfg.PrepareStmt = true
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(min(10, maxConns))
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Setup enables query tracing and pool stats on db and migrates the proposal
// and vote tables
func Setup(
	db *gorm.DB,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	statsName string,
) error {
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return fmt.Errorf("enable query tracing: %w", err)
	}
	if err := RegisterDBStats(db, promRegistry, statsName); err != nil {
		return fmt.Errorf("register pool stats: %w", err)
	}
	for _, model := range models.MigrateModels {
		logger.Debug(
			fmt.Sprintf("migrating table for %T", model),
			"component", "database",
		)
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}
