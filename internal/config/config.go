package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env            string `envconfig:"ENV" default:"development"`
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	RedisURL       string `envconfig:"REDIS_URL"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	// AssetRemoteHosts lists hosts remote artwork may be fetched from.
	// Empty disables remote artwork.
	AssetRemoteHosts string `envconfig:"ASSET_REMOTE_HOSTS"`
	AssetMaxBytes    int64  `envconfig:"ASSET_MAX_BYTES" default:"10485760"`

	Export
}

// Export tunes the export compositor. Base size is in logical units; the
// output surface is BaseSize*ScaleFactor pixels square.
type Export struct {
	BaseSize       int           `envconfig:"EXPORT_BASE_SIZE" default:"500"`
	ScaleFactor    int           `envconfig:"EXPORT_SCALE_FACTOR" default:"2"`
	ImageTimeout   time.Duration `envconfig:"EXPORT_IMAGE_TIMEOUT" default:"10s"`
	CacheTTL       time.Duration `envconfig:"EXPORT_CACHE_TTL" default:"10m"`
	JPEGQuality    int           `envconfig:"JPEG_QUALITY" default:"92"`
	JPEGBackground string        `envconfig:"JPEG_BACKGROUND" default:"#ffffff"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c *Config) RemoteHosts() []string {
	return splitList(c.AssetRemoteHosts)
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
