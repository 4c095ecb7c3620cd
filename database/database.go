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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/ballotbox/database/plugin"
	"github.com/blinklabs-io/ballotbox/database/plugin/blob"
	"github.com/blinklabs-io/ballotbox/database/plugin/blob/badger"
	"github.com/blinklabs-io/ballotbox/database/plugin/metadata"
	_ "github.com/blinklabs-io/ballotbox/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/ballotbox/database/plugin/metadata/postgres"
	"github.com/blinklabs-io/ballotbox/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
	DefaultMaxTxnRetries  = 128
)

var (
	// ErrNoStoreAvailable is returned when a read-write transaction has no
	// store to commit to
	ErrNoStoreAvailable = errors.New("no store available")
	// ErrInvalidRecordKey is returned when an id cannot be encoded into a
	// record key
	ErrInvalidRecordKey = errors.New("invalid record key")
	// ErrMaxRetriesExceeded is returned when a transaction keeps
	// conflicting with concurrent writers
	ErrMaxRetriesExceeded = errors.New("transaction retries exhausted")
)

// Config holds the database configuration. An empty DataDir selects
// in-memory stores for the default plugins.
type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	DataDir        string
	MaxTxnRetries  int
}

type Database struct {
	config   Config
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	metrics  *databaseMetrics
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.config.DataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

// New creates a new database instance using the configured plugins
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	db := &Database{
		config: *config,
		logger: config.Logger,
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if db.config.BlobPlugin == "" {
		db.config.BlobPlugin = DefaultBlobPlugin
	}
	if db.config.MetadataPlugin == "" {
		db.config.MetadataPlugin = DefaultMetadataPlugin
	}
	if db.config.MaxTxnRetries <= 0 {
		db.config.MaxTxnRetries = DefaultMaxTxnRetries
	}
	if db.config.PromRegistry != nil {
		db.metrics = newDatabaseMetrics(db.config.PromRegistry)
	}
	plugin.SetRuntime(db.logger, db.config.PromRegistry)
	blobDb, err := db.openBlob()
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	db.blob = blobDb
	metadataDb, err := db.openMetadata()
	if err != nil {
		_ = blobDb.Close()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db.metadata = metadataDb
	db.logger.Debug(
		"database opened",
		"component", "database",
		"blob_plugin", db.config.BlobPlugin,
		"metadata_plugin", db.config.MetadataPlugin,
		"data_dir", db.config.DataDir,
	)
	return db, nil
}

func (d *Database) openBlob() (blob.BlobStore, error) {
	if d.config.DataDir == "" && d.config.BlobPlugin == DefaultBlobPlugin {
		return badger.New(
			badger.WithLogger(d.logger),
			badger.WithPromRegistry(d.config.PromRegistry),
		)
	}
	if err := plugin.SetPluginOption(
		plugin.PluginTypeBlob,
		d.config.BlobPlugin,
		"data-dir",
		d.config.DataDir,
	); err != nil {
		return nil, err
	}
	return blob.New(d.config.BlobPlugin)
}

func (d *Database) openMetadata() (metadata.MetadataStore, error) {
	if d.config.DataDir == "" && d.config.MetadataPlugin == DefaultMetadataPlugin {
		return sqlite.New("", d.logger, d.config.PromRegistry)
	}
	if err := plugin.SetPluginOption(
		plugin.PluginTypeMetadata,
		d.config.MetadataPlugin,
		"data-dir",
		d.config.DataDir,
	); err != nil {
		return nil, err
	}
	return metadata.New(d.config.MetadataPlugin)
}
