package internal

// Option configures the application before Run starts the pipeline.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the workspace configuration. Run fails without one.
func WithConfig(cfg *Config) Option {
	return func(app *application) {
		app.config = cfg
	}
}
