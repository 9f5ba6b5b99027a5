// Package config loads and validates resolver configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
	"github.com/JakeFAU/profile-image-resolver/internal/render"
	"github.com/JakeFAU/profile-image-resolver/internal/table"
)

// Renderer engines.
const (
	EngineChromedp = "chromedp"
	EngineStatic   = "static"
)

// Snapshot backends. An empty backend disables snapshots.
const (
	SnapshotLocal  = "local"
	SnapshotMemory = "memory"
	SnapshotGCS    = "gcs"
)

// Config captures all resolver configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Table     TableConfig     `mapstructure:"table"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Results   ResultsConfig   `mapstructure:"results"`
	Publish   PublishConfig   `mapstructure:"publish"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig configures page rendering.
type BrowserConfig struct {
	Engine               string        `mapstructure:"engine"`
	ChromePath           string        `mapstructure:"chrome_path"`
	UserAgent            string        `mapstructure:"user_agent"`
	AcceptLanguage       string        `mapstructure:"accept_language"`
	WindowWidth          int           `mapstructure:"window_width"`
	WindowHeight         int           `mapstructure:"window_height"`
	ProfileURL           string        `mapstructure:"profile_url"`
	NavigationTimeout    time.Duration `mapstructure:"navigation_timeout"`
	SettleMin            time.Duration `mapstructure:"settle_min"`
	SettleMax            time.Duration `mapstructure:"settle_max"`
	ScrollSteps          int           `mapstructure:"scroll_steps"`
	ScrollDistance       int           `mapstructure:"scroll_distance"`
	ScrollPauseMin       time.Duration `mapstructure:"scroll_pause_min"`
	ScrollPauseMax       time.Duration `mapstructure:"scroll_pause_max"`
	MaxTabs              int           `mapstructure:"max_tabs"`
	NavigationsPerSecond float64       `mapstructure:"navigations_per_second"`
}

// ExtractConfig configures the extraction pipeline.
type ExtractConfig struct {
	ImagePrefix string `mapstructure:"image_prefix"`
}

// BatchConfig governs the batch runner.
type BatchConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	RenderAttempts   uint          `mapstructure:"render_attempts"`
	RenderRetryDelay time.Duration `mapstructure:"render_retry_delay"`
}

// TableConfig names the CSV columns and files.
type TableConfig struct {
	Input         string `mapstructure:"input"`
	Output        string `mapstructure:"output"`
	ResultColumn  string `mapstructure:"result_column"`
	FailureMarker string `mapstructure:"failure_marker"`
}

// MetricsConfig controls the ops server; an empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SnapshotsConfig selects where unresolved pages are saved.
type SnapshotsConfig struct {
	Backend string `mapstructure:"backend"`
	Prefix  string `mapstructure:"prefix"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
}

// ResultsConfig controls result persistence.
type ResultsConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls access to the results database.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PublishConfig holds the Pub/Sub destination for result events.
type PublishConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.accept_language", "en-US,en;q=0.9")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.profile_url", render.DefaultProfileURL)
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("browser.settle_min", "3.5s")
	v.SetDefault("browser.settle_max", "6.5s")
	v.SetDefault("browser.scroll_steps", 2)
	v.SetDefault("browser.scroll_distance", 300)
	v.SetDefault("browser.scroll_pause_min", "500ms")
	v.SetDefault("browser.scroll_pause_max", "1s")
	v.SetDefault("browser.max_tabs", 2)
	v.SetDefault("browser.navigations_per_second", 0.5)
	v.SetDefault("extract.image_prefix", avatar.DefaultImagePrefix)
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("batch.render_attempts", 2)
	v.SetDefault("batch.render_retry_delay", "2s")
	v.SetDefault("table.input", "accounts.csv")
	v.SetDefault("table.output", "")
	v.SetDefault("table.result_column", table.ResultColumn)
	v.SetDefault("table.failure_marker", table.FailureMarker)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("snapshots.backend", "")
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("snapshots.base_dir", "snapshots")
	v.SetDefault("snapshots.bucket", "")
	v.SetDefault("results.postgres.dsn", "")
	v.SetDefault("results.postgres.table", "profile_image_results")
	v.SetDefault("results.postgres.max_conns", 4)
	v.SetDefault("publish.project_id", "")
	v.SetDefault("publish.topic", "")
}

// applyEnvironment fills the Chrome binary from the variables set by common
// buildpacks when the config leaves it empty.
func (c *Config) applyEnvironment() {
	if c.Browser.ChromePath != "" {
		return
	}
	for _, key := range []string{"CHROME_PATH", "GOOGLE_CHROME_SHIM"} {
		if p := strings.TrimSpace(os.Getenv(key)); p != "" {
			c.Browser.ChromePath = p
			return
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Browser.Engine {
	case EngineChromedp:
		if c.Browser.MaxTabs <= 0 {
			return fmt.Errorf("browser.max_tabs must be > 0")
		}
	case EngineStatic:
	default:
		return fmt.Errorf("browser.engine must be %q or %q", EngineChromedp, EngineStatic)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Browser.SettleMax < c.Browser.SettleMin {
		return fmt.Errorf("browser.settle_max must be >= browser.settle_min")
	}
	if c.Browser.ScrollPauseMax < c.Browser.ScrollPauseMin {
		return fmt.Errorf("browser.scroll_pause_max must be >= browser.scroll_pause_min")
	}
	if c.Browser.ScrollSteps < 0 {
		return fmt.Errorf("browser.scroll_steps must be >= 0")
	}
	prefix := c.Extract.ImagePrefix
	if !strings.HasPrefix(prefix, "https://") && !strings.HasPrefix(prefix, "http://") {
		return fmt.Errorf("extract.image_prefix must be an http(s) URL prefix")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Batch.RenderAttempts == 0 {
		return fmt.Errorf("batch.render_attempts must be > 0")
	}
	if strings.TrimSpace(c.Table.ResultColumn) == "" {
		return fmt.Errorf("table.result_column must be set")
	}
	switch c.Snapshots.Backend {
	case "", SnapshotMemory:
	case SnapshotLocal:
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set for the local backend")
		}
	case SnapshotGCS:
		if c.Snapshots.Bucket == "" {
			return fmt.Errorf("snapshots.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshots.backend must be one of local, memory, gcs")
	}
	if (c.Publish.ProjectID == "") != (c.Publish.Topic == "") {
		return fmt.Errorf("publish.project_id and publish.topic must be set together")
	}
	return nil
}

// ChromedpConfig converts the browser section for the headless renderer.
func (c Config) ChromedpConfig() render.Config {
	b := c.Browser
	return render.Config{
		ChromePath:           b.ChromePath,
		UserAgent:            b.UserAgent,
		AcceptLanguage:       b.AcceptLanguage,
		WindowWidth:          b.WindowWidth,
		WindowHeight:         b.WindowHeight,
		ProfileURL:           b.ProfileURL,
		NavigationTimeout:    b.NavigationTimeout,
		SettleMin:            b.SettleMin,
		SettleMax:            b.SettleMax,
		ScrollSteps:          b.ScrollSteps,
		ScrollDistance:       b.ScrollDistance,
		ScrollPauseMin:       b.ScrollPauseMin,
		ScrollPauseMax:       b.ScrollPauseMax,
		MaxTabs:              b.MaxTabs,
		NavigationsPerSecond: b.NavigationsPerSecond,
	}
}

// StaticConfig converts the browser section for the plain-HTTP renderer.
func (c Config) StaticConfig() render.StaticConfig {
	return render.StaticConfig{
		UserAgent:      c.Browser.UserAgent,
		AcceptLanguage: c.Browser.AcceptLanguage,
		ProfileURL:     c.Browser.ProfileURL,
		Timeout:        c.Browser.NavigationTimeout,
	}
}
