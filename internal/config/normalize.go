// internal/config/normalize.go
package config

const (
	defaultRetryDelayMs = 10000
	defaultTimeoutMs    = 5000
	defaultBaudRate     = 19200
	defaultDataBits     = 8
	defaultParity       = "N"
	defaultStopBits     = 1
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Gateway.RetryDelayMs == 0 {
		cfg.Gateway.RetryDelayMs = defaultRetryDelayMs
	}

	if cfg.Bus.TCP != nil && cfg.Bus.TCP.TimeoutMs == 0 {
		cfg.Bus.TCP.TimeoutMs = defaultTimeoutMs
	}

	if s := cfg.Bus.Serial; s != nil {
		if s.TimeoutMs == 0 {
			s.TimeoutMs = defaultTimeoutMs
		}
		if s.BaudRate == 0 {
			s.BaudRate = defaultBaudRate
		}
		if s.DataBits == 0 {
			s.DataBits = defaultDataBits
		}
		if s.Parity == "" {
			s.Parity = defaultParity
		}
		if s.StopBits == 0 {
			s.StopBits = defaultStopBits
		}
	}

	if cfg.InfluxDB.TimeoutMs == 0 {
		cfg.InfluxDB.TimeoutMs = defaultTimeoutMs
	}
}
