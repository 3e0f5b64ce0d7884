package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultExpirationMs is the token lifetime used when none is configured.
const DefaultExpirationMs = 3_600_000

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	JWT struct {
		// Secret is a base64-encoded HMAC key of at least 256 bits.
		Secret       string
		ExpirationMs int64
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// TokenTTL returns the configured token lifetime, falling back to one hour.
func (c Config) TokenTTL() time.Duration {
	if c.JWT.ExpirationMs <= 0 {
		return DefaultExpirationMs * time.Millisecond
	}
	return time.Duration(c.JWT.ExpirationMs) * time.Millisecond
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")
	return load(".")
}

func load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CYBERSEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/cybersec.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expirationms", DefaultExpirationMs)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "directory-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(configPath)
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
