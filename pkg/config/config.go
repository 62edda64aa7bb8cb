// Copyright 2021 - 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
)

const (
	defaultSchemaName            = "main"
	defaultMaxSimilarityDistance = 4
)

// Config is the top level configuration of a catalog process.
type Config struct {
	Log     logutil.LogConfig `toml:"log"`
	Catalog CatalogConfig     `toml:"catalog"`
	Txn     TxnConfig         `toml:"txn"`
}

// CatalogConfig of the catalog sets
type CatalogConfig struct {
	//name of the schema every catalog owns, it is the only internal entry
	//allowed outside the system catalog. default: main
	DefaultSchema string `toml:"default-schema"`

	//largest edit distance reported as a "did you mean" candidate. default: 4
	MaxSimilarityDistance int `toml:"max-similarity-distance"`
}

// TxnConfig of the transaction manager
type TxnConfig struct {
	//number of workers reclaiming superseded versions after commit.
	//0 reclaims synchronously in the committing goroutine.
	CleanupWorkers int `toml:"cleanup-workers"`
}

// NewDefaultConfig returns a config with every field set to its default.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaultValues()
	return cfg
}

// SetDefaultValues fills the zero fields.
func (c *Config) SetDefaultValues() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Catalog.DefaultSchema == "" {
		c.Catalog.DefaultSchema = defaultSchemaName
	}
	if c.Catalog.MaxSimilarityDistance == 0 {
		c.Catalog.MaxSimilarityDistance = defaultMaxSimilarityDistance
	}
}

// Validate checks the config after defaults are applied.
func (c *Config) Validate() error {
	ctx := context.Background()
	switch c.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfig(ctx, "log format %q", c.Log.Format)
	}
	if c.Catalog.MaxSimilarityDistance < 0 {
		return moerr.NewBadConfig(ctx, "max-similarity-distance %d", c.Catalog.MaxSimilarityDistance)
	}
	if c.Txn.CleanupWorkers < 0 {
		return moerr.NewBadConfig(ctx, "cleanup-workers %d", c.Txn.CleanupWorkers)
	}
	return nil
}

// LoadConfig decodes the toml file at path, applies defaults and validates.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.Background(), "decode %s: %v", path, err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.Background(), "decode: %v", err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
