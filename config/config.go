// Package config holds the tunables of the concurrent range downloader.
package config

import (
	"os"
	"path"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const configDirName = "http-content-range"
const configFileName = "download.toml"

// Download configures how a resource is split and fetched. The zero value is
// not usable directly, call Default or normalize through Load.
type Download struct {
	// ChunkSize is the number of bytes requested per range request.
	ChunkSize int64 `toml:"chunk_size"`
	// Workers is the number of concurrent range requests.
	Workers int `toml:"workers"`
	// TimeoutSeconds bounds a single chunk request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Default returns the settings used when no configuration file is present.
func Default() Download {
	return Download{
		ChunkSize:      64 * 1024,
		Workers:        48,
		TimeoutSeconds: 60,
	}
}

// ChunkTimeout returns TimeoutSeconds as a time.Duration.
func (d Download) ChunkTimeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Load reads a Download config from a TOML file. Fields absent from the file
// keep their Default values.
func Load(filePath string) (Download, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Download{}, errors.Wrap(err, "failed to open download configuration file")
	}
	defer file.Close()

	cfg := Default()
	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return Download{}, errors.Wrap(err, "failed to decode TOML config")
	}
	return cfg, cfg.Validate()
}

// LoadDefault loads the config from the user configuration directory,
// falling back to Default when no file exists there.
func LoadDefault() (Download, error) {
	configPath, err := os.UserConfigDir()
	if err != nil {
		return Download{}, errors.Wrap(err, "failed to get the user configuration directory")
	}
	filePath := path.Join(configPath, configDirName, configFileName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(filePath)
}

// Validate rejects settings that would stall or never finish a download.
func (d Download) Validate() error {
	if d.ChunkSize <= 0 {
		return errors.Errorf("chunk_size must be positive, got %d", d.ChunkSize)
	}
	if d.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", d.Workers)
	}
	if d.TimeoutSeconds <= 0 {
		return errors.Errorf("timeout_seconds must be positive, got %d", d.TimeoutSeconds)
	}
	return nil
}
