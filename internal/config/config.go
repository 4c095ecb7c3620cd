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

package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/ballotbox/database/plugin"
	"github.com/blinklabs-io/ballotbox/internal/sops"
)

type ctxKey string

const configContextKey ctxKey = "ballotbox.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultMaxTxnRetries   = 128
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"BALLOTBOX_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"BALLOTBOX_DATABASE_METADATA_PLUGIN"`
	DatabasePath    string `yaml:"databasePath"                                                 split_words:"true"`
	BindAddr        string `yaml:"bindAddr"                                                     split_words:"true"`
	TlsCertFilePath string `yaml:"tlsCertFilePath" envconfig:"TLS_CERT_FILE_PATH"`
	TlsKeyFilePath  string `yaml:"tlsKeyFilePath"  envconfig:"TLS_KEY_FILE_PATH"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                              split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"                                                      split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"                                                  split_words:"true"`
	MaxTxnRetries   int    `yaml:"maxTxnRetries"                                                split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"                                                split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		DatabasePath:    ".ballotbox",
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
		MaxTxnRetries:   DefaultMaxTxnRetries,
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the configuration from the built-in defaults, the config
// file and the environment, in increasing order of precedence. Plugin
// sections of the config file are handed to the plugin registry. A config
// file encrypted with sops is decrypted first.
func LoadConfig(configFile string) (*Config, error) {
	globalConfig = defaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.ballotbox/ballotbox.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".ballotbox", "ballotbox.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/ballotbox/ballotbox.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/ballotbox/ballotbox.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if sops.IsEncrypted(buf) {
			buf, err = sops.Decrypt(buf)
			if err != nil {
				return nil, fmt.Errorf("error decrypting config file: %w", err)
			}
		}
		if err := loadConfigData(buf); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process("ballotbox", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if globalConfig.MaxTxnRetries < 1 {
		return nil, fmt.Errorf(
			"invalid maxTxnRetries: %d (must be at least 1)",
			globalConfig.MaxTxnRetries,
		)
	}
	return globalConfig, nil
}

func loadConfigData(buf []byte) error {
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	err := yaml.Unmarshal(buf, &tempCfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// If config section exists, use it for main config
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		err = yaml.Unmarshal(configBytes, globalConfig)
		if err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise unmarshal the whole file as main config
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	// Handle database section if present
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, sections := splitPluginSection("blob", tempCfg.Database.Blob)
			if name != "" {
				globalConfig.BlobPlugin = name
			}
			mergePluginConfig(pluginConfig, "blob", sections)
		}
		if tempCfg.Database.Metadata != nil {
			name, sections := splitPluginSection("metadata", tempCfg.Database.Metadata)
			if name != "" {
				globalConfig.MetadataPlugin = name
			}
			mergePluginConfig(pluginConfig, "metadata", sections)
		}
	}
	if len(pluginConfig) > 0 {
		err = plugin.ProcessConfig(pluginConfig)
		if err != nil {
			return fmt.Errorf(
				"error processing plugin config: %w",
				err,
			)
		}
	}
	return nil
}

// splitPluginSection extracts the selected plugin name and the per-plugin
// option maps from a database section
func splitPluginSection(
	sectionName string,
	section map[string]any,
) (string, map[string]map[string]any) {
	var pluginName string
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			if name, ok := v.(string); ok {
				pluginName = name
			}
			continue
		}
		if val, ok := v.(map[string]any); ok {
			ret[k] = val
		} else if val, ok := v.(map[any]any); ok {
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		} else {
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				sectionName,
				k,
				v,
			)
		}
	}
	return pluginName, ret
}

// mergePluginConfig merges with the existing plugin config instead of
// overwriting it
func mergePluginConfig(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	sections map[string]map[string]any,
) {
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = sections
		return
	}
	maps.Copy(pluginConfig[pluginType], sections)
}

func GetConfig() *Config {
	return globalConfig
}
