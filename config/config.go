package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FS holds the fixed geometry of the file layer. All values are settled
// at configuration time; nothing here is runtime-adjustable.
type FS struct {
	IDBase        uint32 `yaml:"idBase"`
	IDSpan        uint32 `yaml:"idSpan"`
	MaxPathLength int    `yaml:"maxPathLength"`
	MaxOpenFiles  int    `yaml:"maxOpenFiles"`
	MaxFileSize   int    `yaml:"maxFileSize"`
	EraseByte     int    `yaml:"eraseByte"`
	ZeroFill      bool   `yaml:"zeroFill"`
}

type Storage struct {
	Directory   string        `yaml:"directory"`
	StorageRoot string        `yaml:"storageRoot"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
	LogLevel    string        `yaml:"logLevel"`
	FS          FS            `yaml:"fs"`
}

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrDirectoryMissing         = errors.New("directory is missing in config")
	ErrEraseByteOutOfRange      = errors.New("fs.eraseByte must be between 0 and 255")
	ErrIDSpanZero               = errors.New("fs.idSpan must be greater than zero when idBase is set")
	ErrMaxFileSizeNegative      = errors.New("fs.maxFileSize must not be negative")
	ErrMaxOpenFilesNegative     = errors.New("fs.maxOpenFiles must not be negative")
	ErrUnknownLogLevel          = errors.New("logLevel must be one of debug, info, warn, error")
)

func LoadConfig(configFile string) (*Storage, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, ErrConfigFileUnreadable
	}

	var cfg Storage
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, ErrConfigFileUnmarshallable
	}

	// Basic validation
	if cfg.Directory == "" {
		return nil, ErrDirectoryMissing
	}

	if cfg.FS.EraseByte < 0 || cfg.FS.EraseByte > 255 {
		return nil, ErrEraseByteOutOfRange
	}

	if cfg.FS.IDBase != 0 && cfg.FS.IDSpan == 0 {
		return nil, ErrIDSpanZero
	}

	if cfg.FS.MaxFileSize < 0 {
		return nil, ErrMaxFileSizeNegative
	}

	if cfg.FS.MaxOpenFiles < 0 {
		return nil, ErrMaxOpenFilesNegative
	}

	if _, err := cfg.Level(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Level maps the configured logLevel string onto a slog level. An empty
// string means info.
func (c *Storage) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrUnknownLogLevel
	}
}
