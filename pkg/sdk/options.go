package cohortlens

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "file"
	addrs    []string
	password string
	dir      string

	keyPrefix string
	bootstrap bool

	academicK int
	personaK  int
	seed      *uint64

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix: "cohortlens:",
		bootstrap: true,
	}
}

// WithRedis stores model artifacts in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithFileStore stores model artifacts in a JSON file under dir.
func WithFileStore(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverFile
		c.dir = dir
	})
}

// WithKeyPrefix namespaces artifact keys. Default: "cohortlens:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithFixtureBootstrap controls whether the built-in centroids are served
// while the store holds no compatible artifacts. Default: enabled.
func WithFixtureBootstrap(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.bootstrap = enabled
	})
}

// WithClusters sets the default cluster counts used by Train.
// Zero keeps the built-in default for that space.
func WithClusters(academicK, personaK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.academicK = academicK
		c.personaK = personaK
	})
}

// WithSeed makes training reproducible.
func WithSeed(seed uint64) Option {
	return optionFunc(func(c *clientConfig) {
		c.seed = &seed
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
