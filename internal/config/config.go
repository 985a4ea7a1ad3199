// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dropwatch/core/pkg/utils"
)

// Config is the top-level configuration for a dropwatch process. It is
// decoded from a JSON file on disk and may be overlaid with environment
// variables for secrets that should not live on disk in plaintext.
type Config struct {
	DataPath string `json:"data_path"`
	LogLevel string `json:"log_level"`

	CZDS     CZDSConfig     `json:"czds"`
	Workers  int            `json:"workers"`
	CatchUp  CatchUpConfig  `json:"catch_up"`
	Database DatabaseConfig `json:"database"`
}

type CZDSConfig struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AuthURL     string `json:"auth_url"`
	BaseURL     string `json:"base_url"`
	RequestSecs int    `json:"request_timeout_seconds"`
}

type CatchUpConfig struct {
	HorizonDays int `json:"horizon_days"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

var ParsedConfig *Config
var ConfigPath string

func ParseConfig(path string) *Config {
	ConfigPath = path
	file, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}

	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			log.Fatal(err)
		}
	}(file)

	decoder := json.NewDecoder(file)
	ParsedConfig = &Config{}
	if err := decoder.Decode(ParsedConfig); err != nil {
		log.Fatal(err)
	}

	applyEnvOverlay(ParsedConfig)

	if err := SetupDataPath(); err != nil {
		log.Fatal(err)
	}

	if ParsedConfig.CZDS.Username == "" || ParsedConfig.CZDS.Password == "" {
		log.Fatal("czds credentials are missing from the config file")
	}

	if ParsedConfig.Workers <= 0 {
		ParsedConfig.Workers = 4
	}

	if ParsedConfig.CatchUp.HorizonDays <= 0 {
		ParsedConfig.CatchUp.HorizonDays = 7
	}

	return ParsedConfig
}

// applyEnvOverlay lets deployments keep CZDS credentials out of the config
// file on disk, the same override-by-env pattern used for secrets across
// the rest of this stack.
func applyEnvOverlay(cfg *Config) {
	if v, ok := os.LookupEnv("DROPWATCH_CZDS_USERNAME"); ok {
		cfg.CZDS.Username = v
	}
	if v, ok := os.LookupEnv("DROPWATCH_CZDS_PASSWORD"); ok {
		cfg.CZDS.Password = v
	}
	if v, ok := os.LookupEnv("DROPWATCH_DATA_PATH"); ok {
		cfg.DataPath = v
	}
}

func GetDataPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("failed to get current working directory: ", err)
	}

	if ParsedConfig == nil {
		return filepath.Join(cwd, "data"), nil
	}

	if ParsedConfig.DataPath == "" {
		ParsedConfig.DataPath = filepath.Join(cwd, "data")
		if err := os.MkdirAll(ParsedConfig.DataPath, 0755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return ParsedConfig.DataPath, nil
}

func SetupDataPath() error {
	dataPath, err := GetDataPath()
	if err != nil {
		return fmt.Errorf("failed to get data path: %w", err)
	}

	dirs := []string{
		dataPath,
		filepath.Join(dataPath, "zones"),
		filepath.Join(dataPath, "cache"),
		filepath.Join(dataPath, "db"),
	}

	for _, dir := range dirs {
		isDir, err := utils.IsDir(dir)
		if err != nil {
			return fmt.Errorf("failed to check directory %s: %w", dir, err)
		}
		if isDir {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetZoneStorePath returns the root directory under which zone snapshots
// are kept, one subdirectory per TLD.
func GetZoneStorePath() (string, error) {
	dataPath, err := GetDataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, "zones"), nil
}

func GetCachePath() (string, error) {
	dataPath, err := GetDataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, "cache"), nil
}

func GetDatabasePath() (string, error) {
	if ParsedConfig != nil && ParsedConfig.Database.Path != "" {
		return ParsedConfig.Database.Path, nil
	}
	dataPath, err := GetDataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, "db", "dropwatch.db"), nil
}
