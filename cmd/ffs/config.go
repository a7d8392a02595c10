package main

import (
	"os"
	"strconv"
	"time"

	"github.com/go-errors/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/wire"
)

// Config holds the defaults of the command line flags. They are read from the environment,
// optionally populated from a .env file in the working directory.
type Config struct {
	KeysDir string
	// Bits is the size of the modulus n in bits.
	Bits     int
	K        int
	T        int
	Timeout  time.Duration
	LogLevel logrus.Level
	Codec    wire.Codec
}

// LoadConfig reads the configuration. Variables that are already set in the environment take
// precedence over the .env file; a missing .env file is not an error.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapPrefix(err, "failed to load environment file", 0)
	}

	cfg := &Config{KeysDir: envOrDefault("FFS_KEYS_DIR", ffskeys.DefaultKeysDir)}
	var err error
	if cfg.Bits, err = envIntOrDefault("FFS_BITS", 512); err != nil {
		return nil, err
	}
	if cfg.K, err = envIntOrDefault("FFS_K", 5); err != nil {
		return nil, err
	}
	if cfg.T, err = envIntOrDefault("FFS_T", 4); err != nil {
		return nil, err
	}

	timeout := envOrDefault("FFS_TIMEOUT", wire.DefaultTimeout.String())
	if cfg.Timeout, err = time.ParseDuration(timeout); err != nil || cfg.Timeout <= 0 {
		return nil, errors.Errorf("FFS_TIMEOUT: invalid duration %q", timeout)
	}
	level := envOrDefault("FFS_LOG_LEVEL", "warning")
	if cfg.LogLevel, err = logrus.ParseLevel(level); err != nil {
		return nil, errors.WrapPrefix(err, "FFS_LOG_LEVEL", 0)
	}
	if cfg.Codec, err = wire.CodecByName(os.Getenv("FFS_CODEC")); err != nil {
		return nil, errors.WrapPrefix(err, "FFS_CODEC", 0)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	return n, nil
}
