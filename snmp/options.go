package snmp

import (
	"log/slog"
	"time"
)

// EngineOptions contains configuration for a request engine.
type EngineOptions struct {
	// Community is the default community string.
	Community string
	// Version is the default SNMP version.
	Version SNMPVersion
	// Timeout is the default per-attempt timeout.
	Timeout time.Duration
	// Retries is the default number of additional attempts on
	// recoverable errors.
	Retries int
	// Port is the default agent port.
	Port int
	// MaxRepetitions is the default max-repetitions for GetBulk.
	MaxRepetitions int
	// NonRepeaters is the default non-repeaters for GetBulk.
	NonRepeaters int
	// QueueSize bounds the batch submission queue.
	QueueSize int

	// Pool configures the engine's endpoint pool.
	Pool []PoolOption
	// Breaker, when set, gates every request through a circuit breaker.
	Breaker *Breaker
	// Config, when set, supplies defaults underneath the values above.
	Config *Config
	// MIB resolves symbolic OIDs. Defaults to the process registry.
	MIB *MIB
	// Logger is the structured logger.
	Logger *slog.Logger
}

// NewEngineOptions creates EngineOptions with default values.
func NewEngineOptions() *EngineOptions {
	return &EngineOptions{
		Community:      DefaultCommunity,
		Version:        Version2c,
		Timeout:        DefaultTimeout,
		Retries:        DefaultRetries,
		Port:           DefaultPort,
		MaxRepetitions: DefaultMaxRepetitions,
		NonRepeaters:   DefaultNonRepeaters,
		QueueSize:      256,
	}
}

// EngineOption is a functional option for configuring an engine.
type EngineOption func(*EngineOptions)

// WithCommunity sets the default community string.
func WithCommunity(community string) EngineOption {
	return func(o *EngineOptions) {
		o.Community = community
	}
}

// WithVersion sets the default SNMP version.
func WithVersion(version SNMPVersion) EngineOption {
	return func(o *EngineOptions) {
		o.Version = version
	}
}

// WithTimeout sets the default request timeout.
func WithTimeout(d time.Duration) EngineOption {
	return func(o *EngineOptions) {
		o.Timeout = d
	}
}

// WithRetries sets the default retry count.
func WithRetries(n int) EngineOption {
	return func(o *EngineOptions) {
		o.Retries = n
	}
}

// WithPort sets the default agent port.
func WithPort(port int) EngineOption {
	return func(o *EngineOptions) {
		o.Port = port
	}
}

// WithMaxRepetitions sets the default max-repetitions for GetBulk.
func WithMaxRepetitions(n int) EngineOption {
	return func(o *EngineOptions) {
		o.MaxRepetitions = n
	}
}

// WithNonRepeaters sets the default non-repeaters for GetBulk.
func WithNonRepeaters(n int) EngineOption {
	return func(o *EngineOptions) {
		o.NonRepeaters = n
	}
}

// WithQueueSize bounds the engine's batch queue.
func WithQueueSize(n int) EngineOption {
	return func(o *EngineOptions) {
		o.QueueSize = n
	}
}

// WithPoolOptions configures the engine's endpoint pool.
func WithPoolOptions(opts ...PoolOption) EngineOption {
	return func(o *EngineOptions) {
		o.Pool = opts
	}
}

// WithBreaker gates engine requests through the given circuit breaker.
func WithBreaker(b *Breaker) EngineOption {
	return func(o *EngineOptions) {
		o.Breaker = b
	}
}

// WithConfig supplies a defaults provider underneath the engine options.
func WithConfig(c *Config) EngineOption {
	return func(o *EngineOptions) {
		o.Config = c
	}
}

// WithMIB sets the symbolic-name registry.
func WithMIB(m *MIB) EngineOption {
	return func(o *EngineOptions) {
		o.MIB = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *EngineOptions) {
		o.Logger = logger
	}
}

// PoolOptions contains configuration for the endpoint pool.
type PoolOptions struct {
	// PoolSize is the maximum number of endpoints.
	PoolSize int
	// MaxIdleTime is the maximum time an endpoint can sit idle.
	MaxIdleTime time.Duration
	// CleanupInterval is the interval between idle sweeps.
	CleanupInterval time.Duration
	// Logger is the logger.
	Logger *slog.Logger
}

// NewPoolOptions creates PoolOptions with default values.
func NewPoolOptions() *PoolOptions {
	return &PoolOptions{
		PoolSize:        10,
		MaxIdleTime:     5 * time.Minute,
		CleanupInterval: 30 * time.Second,
	}
}

// PoolOption is a functional option for configuring the pool.
type PoolOption func(*PoolOptions)

// WithPoolSize sets the maximum number of endpoints.
func WithPoolSize(size int) PoolOption {
	return func(o *PoolOptions) {
		o.PoolSize = size
	}
}

// WithMaxIdleTime sets the idle eviction threshold.
func WithMaxIdleTime(d time.Duration) PoolOption {
	return func(o *PoolOptions) {
		o.MaxIdleTime = d
	}
}

// WithCleanupInterval sets the sweep interval.
func WithCleanupInterval(d time.Duration) PoolOption {
	return func(o *PoolOptions) {
		o.CleanupInterval = d
	}
}

// WithPoolLogger sets the pool logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(o *PoolOptions) {
		o.Logger = logger
	}
}

// RequestOptions are per-call overrides. Zero values fall through to the
// engine defaults, which in turn fall through to the Config provider.
type RequestOptions struct {
	Community      string
	Version        SNMPVersion
	versionSet     bool
	Timeout        time.Duration
	Retries        int
	retriesSet     bool
	Port           int
	NonRepeaters   int
	nonRepSet      bool
	MaxRepetitions int
	// Type forces an explicit SMI type on Set; otherwise inferred.
	Type    BERType
	typeSet bool
}

// ReqOption is a per-call functional option.
type ReqOption func(*RequestOptions)

// Community overrides the community string for one call.
func Community(c string) ReqOption {
	return func(o *RequestOptions) {
		o.Community = c
	}
}

// UseVersion overrides the SNMP version for one call.
func UseVersion(v SNMPVersion) ReqOption {
	return func(o *RequestOptions) {
		o.Version = v
		o.versionSet = true
	}
}

// Timeout overrides the per-attempt timeout for one call.
func Timeout(d time.Duration) ReqOption {
	return func(o *RequestOptions) {
		o.Timeout = d
	}
}

// Retries overrides the retry count for one call.
func Retries(n int) ReqOption {
	return func(o *RequestOptions) {
		o.Retries = n
		o.retriesSet = true
	}
}

// Port overrides the agent port for one call.
func Port(p int) ReqOption {
	return func(o *RequestOptions) {
		o.Port = p
	}
}

// NonRepeaters overrides the GetBulk non-repeaters for one call.
func NonRepeaters(n int) ReqOption {
	return func(o *RequestOptions) {
		o.NonRepeaters = n
		o.nonRepSet = true
	}
}

// MaxRepetitions overrides the GetBulk max-repetitions for one call.
func MaxRepetitions(n int) ReqOption {
	return func(o *RequestOptions) {
		o.MaxRepetitions = n
	}
}

// ExplicitType forces the SMI type on a Set call.
func ExplicitType(t BERType) ReqOption {
	return func(o *RequestOptions) {
		o.Type = t
		o.typeSet = true
	}
}
