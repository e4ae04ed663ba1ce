package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Fetch     FetchConfig
	Proxy     ProxyConfig
	Bulk      BulkConfig
	Cache     CacheConfig
	Pricing   PricingConfig
	FX        FXConfig
	Scheduler SchedulerConfig
	S3        S3Config
	DBPath    string
	DBURL     string
	DebugDir  string
	LogPath   string
	Locations []Location
}

type FetchConfig struct {
	RPS            float64
	Budget         time.Duration
	Timeout        time.Duration
	BrowserEnabled bool
	UserAgent      string
	ForwardedFor   string
}

// ProxyConfig describes the optional JS-rendering fetch proxy.
type ProxyConfig struct {
	Service  string
	Endpoint string
	APIKey   string
	Country  string
}

func (p ProxyConfig) Enabled() bool {
	return p.APIKey != ""
}

type BulkConfig struct {
	Concurrency int
	MaxRetries  int
	Backoff     time.Duration
	Durations   []int
}

type CacheConfig struct {
	TTL  time.Duration
	Size int
}

type PricingConfig struct {
	AdjustmentPct float64
	OffsetEUR     float64
	AdjustHost    string
	TargetCurr    string
}

type FXConfig struct {
	URL          string
	TTL          time.Duration
	RetryAfter   time.Duration // wait after a failed refresh
	FallbackRate float64
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
	Lang     string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Location is an entry of the locations file: a destination code plus the
// free-text names that resolve to it.
type Location struct {
	Name      string   `yaml:"name"`
	Code      string   `yaml:"code"`
	Aliases   []string `yaml:"aliases"`
	Scheduled bool     `yaml:"scheduled"`
}

type locationsFile struct {
	Locations []Location `yaml:"locations"`
}

var DefaultDurations = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 14, 22, 31, 60}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Fetch: FetchConfig{
			RPS:            getEnvFloat("GLOBAL_FETCH_RPS", 5),
			Budget:         getEnvDuration("FETCH_BUDGET", 45*time.Second),
			Timeout:        getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
			BrowserEnabled: getEnvBool("BROWSER_ENABLED", true),
			UserAgent:      getEnv("FETCH_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"),
			ForwardedFor:   getEnv("FETCH_FORWARDED_FOR", "185.23.160.1"),
		},
		Proxy: ProxyConfig{
			Service:  getEnv("SCRAPER_SERVICE", "scrapeops"),
			Endpoint: getEnv("SCRAPER_ENDPOINT", "https://proxy.scrapeops.io/v1/"),
			APIKey:   os.Getenv("SCRAPER_API_KEY"),
			Country:  getEnv("SCRAPER_COUNTRY", "pt"),
		},
		Bulk: BulkConfig{
			Concurrency: getEnvInt("BULK_CONCURRENCY", 6),
			MaxRetries:  getEnvInt("BULK_MAX_RETRIES", 2),
			Backoff:     time.Duration(getEnvInt("BULK_BACKOFF_MS", 300)) * time.Millisecond,
			Durations:   getEnvInts("BULK_DURATIONS", DefaultDurations),
		},
		Cache: CacheConfig{
			TTL:  time.Duration(getEnvInt("PRICES_CACHE_TTL_SECONDS", 300)) * time.Second,
			Size: getEnvInt("PRICES_CACHE_SIZE", 512),
		},
		Pricing: PricingConfig{
			AdjustmentPct: getEnvFloat("CARJET_PRICE_ADJUSTMENT_PCT", 0),
			OffsetEUR:     getEnvFloat("CARJET_PRICE_OFFSET_EUR", 0),
			AdjustHost:    getEnv("ADJUST_HOST", "carjet.com"),
			TargetCurr:    getEnv("TARGET_CURRENCY", "EUR"),
		},
		FX: FXConfig{
			URL:          getEnv("FX_URL", "https://api.exchangerate.host/latest"),
			TTL:          getEnvDuration("FX_TTL", time.Hour),
			RetryAfter:   getEnvDuration("FX_RETRY_AFTER", 5*time.Minute),
			FallbackRate: getEnvFloat("FX_FALLBACK_RATE", 1.16),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("BULK_CRON"),
			Interval: getEnvDuration("BULK_INTERVAL", 0),
			Lang:     getEnv("BULK_LANG", "pt"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-west-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "debug-html"),
		},
		DBPath:   getEnv("DB_PATH", "prices.db"),
		DBURL:    os.Getenv("DATABASE_URL"),
		DebugDir: os.Getenv("DEBUG_DIR"),
		LogPath:  getEnv("LOG_PATH", "tracker.log"),
	}

	if cfg.Bulk.Concurrency < 1 {
		cfg.Bulk.Concurrency = 1
	}
	if cfg.Bulk.MaxRetries < 1 {
		cfg.Bulk.MaxRetries = 1
	}

	locs, err := LoadLocations(getEnv("LOCATIONS_FILE", "config/locations.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// LoadLocations reads the locations file. A missing file is not an error.
func LoadLocations(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f locationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, loc := range f.Locations {
		if loc.Name == "" || loc.Code == "" {
			return nil, fmt.Errorf("parse %s: location %d needs name and code", path, i)
		}
	}
	return f.Locations, nil
}

// ScheduledLocations returns the names flagged for scheduled bulk runs.
func (c *Config) ScheduledLocations() []string {
	var names []string
	for _, loc := range c.Locations {
		if loc.Scheduled {
			names = append(names, loc.Name)
		}
	}
	return names
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.Replace(val, ",", ".", 1), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvInts(key string, defaultVal []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
