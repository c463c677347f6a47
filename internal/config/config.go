package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	//===============
	//  Harvest scope
	//===============
	// Which archive variant to run. Must name a registered adapter.
	archiveName string
	// Seed for the archive: a listing/index URL, or a path to a local
	// tabular export.
	seed string

	//===============
	// Politeness
	//===============
	// Maximum number of fetches in flight across all hosts.
	concurrency int
	// Minimum spacing between consecutive dispatches to one host.
	perHostMinInterval time.Duration
	// Whether to fetch robots.txt per host and honor its disallow
	// prefixes and crawl-delay.
	respectRobots bool
	// Controls the random number generator used for backoff jitter.
	randomSeed int64
	// Maximum retries per task before it is finalized as failed.
	maxAttempts int
	// Initial delay for backoff.
	backoffInitialDuration time.Duration
	// Multiplier during exponential backoff.
	backoffMultiplier float64
	// Capped maximum delay for backoff.
	backoffMaxDuration time.Duration
	// Fraction of the computed delay that jitter may add.
	backoffJitterFraction float64

	//===============
	// Fetch
	//===============
	// Maximum time for a single fetch request.
	timeout time.Duration
	// User agent sent in the request header.
	userAgent string

	//===============
	// Output
	//===============
	// Root directory for the dataset file, image store and resume index.
	outputDir string
	// Whether to consult the resume index and skip completed records.
	resume bool
}

func WithDefault(archiveName, seed string) *Config {
	return &Config{
		archiveName:            archiveName,
		seed:                   seed,
		concurrency:            4,
		perHostMinInterval:     time.Second,
		respectRobots:          true,
		randomSeed:             time.Now().UnixNano(),
		maxAttempts:            3,
		backoffInitialDuration: 500 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     30 * time.Second,
		backoffJitterFraction:  0.2,
		timeout:                30 * time.Second,
		userAgent:              "museum-harvester/1.0",
		outputDir:              "output",
		resume:                 false,
	}
}

// WithConfigFile loads overrides from a config file (yaml/json/toml by
// extension) merged with HARVESTER_* environment variables, on top of
// the defaults.
func WithConfigFile(path, archiveName, seed string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	return fromViper(v, archiveName, seed)
}

// WithEnv applies only HARVESTER_* environment overrides on top of the
// defaults.
func WithEnv(archiveName, seed string) (Config, error) {
	return fromViper(newViper(), archiveName, seed)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper, archiveName, seed string) (Config, error) {
	cfg := *WithDefault(archiveName, seed)

	if v.IsSet("concurrency") {
		cfg.concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("perHostMinInterval") {
		cfg.perHostMinInterval = v.GetDuration("perHostMinInterval")
	}
	if v.IsSet("respectRobots") {
		cfg.respectRobots = v.GetBool("respectRobots")
	}
	if v.IsSet("randomSeed") {
		cfg.randomSeed = v.GetInt64("randomSeed")
	}
	if v.IsSet("maxAttempts") {
		cfg.maxAttempts = v.GetInt("maxAttempts")
	}
	if v.IsSet("backoffInitialDuration") {
		cfg.backoffInitialDuration = v.GetDuration("backoffInitialDuration")
	}
	if v.IsSet("backoffMultiplier") {
		cfg.backoffMultiplier = v.GetFloat64("backoffMultiplier")
	}
	if v.IsSet("backoffMaxDuration") {
		cfg.backoffMaxDuration = v.GetDuration("backoffMaxDuration")
	}
	if v.IsSet("backoffJitterFraction") {
		cfg.backoffJitterFraction = v.GetFloat64("backoffJitterFraction")
	}
	if v.IsSet("timeout") {
		cfg.timeout = v.GetDuration("timeout")
	}
	if v.IsSet("userAgent") {
		cfg.userAgent = v.GetString("userAgent")
	}
	if v.IsSet("outputDir") {
		cfg.outputDir = v.GetString("outputDir")
	}
	if v.IsSet("resume") {
		cfg.resume = v.GetBool("resume")
	}
	return cfg.Build()
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithPerHostMinInterval(interval time.Duration) *Config {
	c.perHostMinInterval = interval
	return c
}

func (c *Config) WithRespectRobots(respect bool) *Config {
	c.respectRobots = respect
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempts(attempts int) *Config {
	c.maxAttempts = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithBackoffJitterFraction(fraction float64) *Config {
	c.backoffJitterFraction = fraction
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithResume(resume bool) *Config {
	c.resume = resume
	return c
}

func (c *Config) Build() (Config, error) {
	if c.archiveName == "" {
		return Config{}, fmt.Errorf("%w: archive cannot be empty", ErrInvalidConfig)
	}
	if c.seed == "" {
		return Config{}, fmt.Errorf("%w: seed cannot be empty", ErrInvalidConfig)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempts < 0 {
		return Config{}, fmt.Errorf("%w: maxAttempts cannot be negative", ErrInvalidConfig)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be at least 1", ErrInvalidConfig)
	}
	return *c, nil
}

func (c Config) ArchiveName() string {
	return c.archiveName
}

func (c Config) Seed() string {
	return c.seed
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) PerHostMinInterval() time.Duration {
	return c.perHostMinInterval
}

func (c Config) RespectRobots() bool {
	return c.respectRobots
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempts() int {
	return c.maxAttempts
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) BackoffJitterFraction() float64 {
	return c.backoffJitterFraction
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) Resume() bool {
	return c.resume
}
