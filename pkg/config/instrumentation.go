package config

import "errors"

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus" yaml:"prometheus" comment:"Enable Prometheus metrics"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr" yaml:"prometheus_listen_addr" comment:"Address to listen for Prometheus metrics"`

	// Maximum number of simultaneous connections.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections" yaml:"max_open_connections" comment:"Maximum number of simultaneous connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace" yaml:"namespace" comment:"Namespace for metrics"`

	// When true, pprof endpoints are served under /debug/pprof/ on
	// PprofListenAddr.
	Pprof bool `mapstructure:"pprof" yaml:"pprof" comment:"Enable pprof profiling server"`

	// Address to listen for pprof connections.
	PprofListenAddr string `mapstructure:"pprof_listen_addr" yaml:"pprof_listen_addr" comment:"Address to listen for pprof connections"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "bridge",
		Pprof:                false,
		PprofListenAddr:      ":6060",
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	return nil
}

// IsPrometheusEnabled returns true if Prometheus metrics are enabled.
func (cfg *InstrumentationConfig) IsPrometheusEnabled() bool {
	return cfg.Prometheus && cfg.PrometheusListenAddr != ""
}

// IsPprofEnabled returns true if pprof endpoints are enabled.
func (cfg *InstrumentationConfig) IsPprofEnabled() bool {
	return cfg.Pprof
}

// GetPprofListenAddr returns the address to listen for pprof connections.
// If PprofListenAddr is empty, it returns the default pprof port ":6060".
func (cfg *InstrumentationConfig) GetPprofListenAddr() string {
	if cfg.PprofListenAddr == "" {
		return ":6060"
	}
	return cfg.PprofListenAddr
}
