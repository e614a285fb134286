package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/detect"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/normalize"
	"github.com/Veraticus/tablero/internal/sheets"
	"github.com/spf13/viper"
)

// Defaults applied by SetDefaults.
const (
	DefaultDatabasePath = "~/.local/share/tablero/tablero.db"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
	DefaultRateLimit    = 10.0
	DefaultRateBurst    = 20
)

// Config is the validated application configuration.
type Config struct {
	Google    sheets.Config
	Database  DatabaseConfig
	Logging   LoggingConfig
	Server    ServerConfig
	Sources   []ingest.SourceConfig
	Normalize NormalizeConfig
	Sync      SyncConfig
	Metrics   MetricsConfig
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// NormalizeConfig tunes dates, header detection and fingerprints.
type NormalizeConfig struct {
	Keywords       map[string][]string
	DedupMode      string
	FallbackYear   int
	MinYear        int
	MaxYear        int
	HeaderScanRows int
	MinHeaderScore int
}

// SyncConfig bounds source downloads.
type SyncConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Host        string
	CORSOrigins []string
	Port        int
	RateLimit   float64
	RateBurst   int
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool
}

// sourceEntry is one element of the sources list as written in YAML. id is
// used by sheets and drive sources, path by file sources.
type sourceEntry struct {
	Name         string   `mapstructure:"name"`
	Kind         string   `mapstructure:"kind"`
	ID           string   `mapstructure:"id"`
	Path         string   `mapstructure:"path"`
	DefaultScope string   `mapstructure:"default_scope"`
	Include      []string `mapstructure:"include"`
	Exclude      []string `mapstructure:"exclude"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	defaultDates := normalize.DefaultDateNormalizer()
	defaultHeader := detect.DefaultHeaderOptions()

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", common.LogFormatConsole)
	v.SetDefault("google.token_file", filepath.Join(Dir(), "token.json"))
	v.SetDefault("normalize.fallback_year", defaultDates.FallbackYear)
	v.SetDefault("normalize.min_year", defaultDates.MinYear)
	v.SetDefault("normalize.max_year", defaultDates.MaxYear)
	v.SetDefault("normalize.dedup_mode", string(ingest.DedupOccurrence))
	v.SetDefault("normalize.header_scan_rows", defaultHeader.MaxRows)
	v.SetDefault("normalize.min_header_score", defaultHeader.MinScore)
	v.SetDefault("sync.timeout", ingest.DefaultFetchTimeout)
	v.SetDefault("sync.concurrency", ingest.DefaultConcurrency)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.rate_limit", DefaultRateLimit)
	v.SetDefault("server.rate_burst", DefaultRateBurst)
	v.SetDefault("metrics.enabled", true)
}

// Load reads the configuration held by v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Google: LoadSheetsConfig(v),
		Normalize: NormalizeConfig{
			FallbackYear:   v.GetInt("normalize.fallback_year"),
			MinYear:        v.GetInt("normalize.min_year"),
			MaxYear:        v.GetInt("normalize.max_year"),
			DedupMode:      v.GetString("normalize.dedup_mode"),
			HeaderScanRows: v.GetInt("normalize.header_scan_rows"),
			MinHeaderScore: v.GetInt("normalize.min_header_score"),
			Keywords:       v.GetStringMapStringSlice("normalize.keywords"),
		},
		Sync: SyncConfig{
			Timeout:     v.GetDuration("sync.timeout"),
			Concurrency: v.GetInt("sync.concurrency"),
		},
		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			RateLimit:   v.GetFloat64("server.rate_limit"),
			RateBurst:   v.GetInt("server.rate_burst"),
		},
		Metrics: MetricsConfig{Enabled: v.GetBool("metrics.enabled")},
	}

	var entries []sourceEntry
	if err := v.UnmarshalKey("sources", &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to read sources: %w", common.ErrInvalidConfig, err)
	}
	for i, e := range entries {
		src, err := e.toSource()
		if err != nil {
			return nil, fmt.Errorf("%w: sources[%d]: %w", common.ErrInvalidConfig, i, err)
		}
		cfg.Sources = append(cfg.Sources, src)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e sourceEntry) toSource() (ingest.SourceConfig, error) {
	src := ingest.SourceConfig{
		Name:    strings.TrimSpace(e.Name),
		Kind:    ingest.SourceKind(strings.ToLower(strings.TrimSpace(e.Kind))),
		Include: e.Include,
		Exclude: e.Exclude,
	}
	if src.Kind == ingest.KindFile {
		src.Location = ExpandPath(e.Path)
	} else {
		src.Location = strings.TrimSpace(e.ID)
	}

	if e.DefaultScope != "" {
		scope, err := model.ParseScope(e.DefaultScope)
		if err != nil {
			return src, err
		}
		src.DefaultScope = scope
	}
	return src, nil
}

// Validate checks every section. Google credentials are required only when
// a sheets or drive source is configured.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case common.LogFormatConsole, common.LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	n := c.Normalize
	if n.MinYear > n.MaxYear {
		errs = append(errs, fmt.Errorf("normalize.min_year %d is after normalize.max_year %d", n.MinYear, n.MaxYear))
	}
	if n.FallbackYear < n.MinYear || n.FallbackYear > n.MaxYear {
		errs = append(errs, fmt.Errorf("normalize.fallback_year %d is outside [%d, %d]", n.FallbackYear, n.MinYear, n.MaxYear))
	}
	if _, err := ingest.ParseDedupMode(n.DedupMode); err != nil {
		errs = append(errs, err)
	}
	if n.HeaderScanRows <= 0 {
		errs = append(errs, errors.New("normalize.header_scan_rows must be positive"))
	}
	if n.MinHeaderScore <= 0 {
		errs = append(errs, errors.New("normalize.min_header_score must be positive"))
	}
	if _, err := detect.DefaultKeywords().WithOverrides(n.Keywords); err != nil {
		errs = append(errs, fmt.Errorf("normalize.keywords: %w", err))
	}

	if c.Sync.Timeout <= 0 {
		errs = append(errs, errors.New("sync.timeout must be positive"))
	}
	if c.Sync.Concurrency <= 0 {
		errs = append(errs, errors.New("sync.concurrency must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server.rate_limit and server.rate_burst cannot be negative"))
	}

	names := make(map[string]bool)
	needsGoogle := false
	for _, src := range c.Sources {
		if err := src.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if names[src.Name] {
			errs = append(errs, fmt.Errorf("duplicate source name %q", src.Name))
		}
		names[src.Name] = true
		if src.Kind != ingest.KindFile {
			needsGoogle = true
		}
	}
	if needsGoogle {
		if err := c.Google.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("google: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ProcessorConfig builds the sheet processor settings.
func (c *Config) ProcessorConfig() (ingest.ProcessorConfig, error) {
	keywords, err := detect.DefaultKeywords().WithOverrides(c.Normalize.Keywords)
	if err != nil {
		return ingest.ProcessorConfig{}, fmt.Errorf("%w: normalize.keywords: %w", common.ErrInvalidConfig, err)
	}
	dedup, err := ingest.ParseDedupMode(c.Normalize.DedupMode)
	if err != nil {
		return ingest.ProcessorConfig{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	header := detect.DefaultHeaderOptions()
	header.MaxRows = c.Normalize.HeaderScanRows
	header.MinScore = c.Normalize.MinHeaderScore

	return ingest.ProcessorConfig{
		Keywords: keywords,
		Header:   header,
		Dates: normalize.DateNormalizer{
			FallbackYear: c.Normalize.FallbackYear,
			MinYear:      c.Normalize.MinYear,
			MaxYear:      c.Normalize.MaxYear,
		},
		Dedup: dedup,
	}, nil
}

// PipelineConfig builds the pipeline settings.
func (c *Config) PipelineConfig() ingest.PipelineConfig {
	return ingest.PipelineConfig{
		FetchTimeout: c.Sync.Timeout,
		Concurrency:  c.Sync.Concurrency,
	}
}

// Source returns the configured source with the given name.
func (c *Config) Source(name string) (ingest.SourceConfig, bool) {
	for _, src := range c.Sources {
		if strings.EqualFold(src.Name, name) {
			return src, true
		}
	}
	return ingest.SourceConfig{}, false
}
