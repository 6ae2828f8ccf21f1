package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/openmined/cdnpublish/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "CDN"
	configFileName = "config"
)

// flag name -> config key
var configFlags = map[string]string{
	"storage-api-base-url": "storage_api_base_url",
	"storage-api-key":      "storage_api_key",
	"zone-name":            "zone_name",
}

// loadConfig resolves the storage settings. Precedence: explicit flags, environment (after loading
// the dotenv file), config file, flag defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := loadEnvFile(cmd); err != nil {
		return nil, err
	}

	v := viper.New()

	// config path
	if cmd.Flags().Changed("config") {
		configFilePath, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(configFilePath)
	} else {
		v.AddConfigPath(config.DefaultConfigDir)
		v.SetConfigName(configFileName)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
		if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	for flag, key := range configFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	// Set up environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("config loaded", "file", v.ConfigFileUsed(), "config", cfg)
	return cfg, nil
}

// loadEnvFile populates the process environment from a dotenv file without overriding
// variables that are already set. The default file is optional, an explicit one is not.
func loadEnvFile(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return nil
	}

	explicit := cmd.Flags().Changed("env-file")
	if _, err := os.Stat(envFile); err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(filepath.Clean(envFile)); err != nil {
		return fmt.Errorf("env file '%s': %w", envFile, err)
	}
	return nil
}
