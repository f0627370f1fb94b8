package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"openfms/fitstream/internal/logger"
	"openfms/fitstream/internal/output"
	"openfms/fitstream/internal/stream"
)

// Config holds all configuration for the FIT tools
type Config struct {
	ChunkSize       int    `json:"chunk_size" yaml:"chunk_size"`
	SkipUndecodable bool   `json:"skip_undecodable" yaml:"skip_undecodable"`
	OutputFormat    string `json:"output_format" yaml:"output_format"`
	WGS84           bool   `json:"wgs84" yaml:"wgs84"`
	VerifyCRC       bool   `json:"verify_crc" yaml:"verify_crc"`
	// Prometheus text file written after all inputs; empty disables it
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"`

	Log logger.Config `json:"log" yaml:"log"`
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		ChunkSize:       getEnvAsInt("FIT_CHUNK_SIZE", stream.DefaultChunkSize),
		SkipUndecodable: getEnvAsBool("FIT_SKIP_UNDECODABLE", false),
		OutputFormat:    getEnv("FIT_OUTPUT_FORMAT", string(output.FormatJSON)),
		WGS84:           getEnvAsBool("FIT_WGS84", false),
		VerifyCRC:       getEnvAsBool("FIT_VERIFY_CRC", true),
		MetricsFile:     getEnv("FIT_METRICS_FILE", ""),
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
	}
}

// LoadFile overlays the settings of a YAML or JSON file onto c. JSON files
// may contain comments and trailing commas. Keys missing from the file keep
// their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.ChunkSize)
	}
	if _, err := output.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
