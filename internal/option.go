package internal

// Option configures the watcher service before Run wires it up.
type Option func(*application)

// application collects everything the options set. Kept separate from Config
// so future options can inject non-config collaborators (clocks, brokers)
// without widening the config surface.
type application struct {
	config *Config
}

// WithConfig supplies the service configuration. Run fails without it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
