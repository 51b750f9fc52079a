package params

// ConfigError is a fatal load-time configuration problem.
type ConfigError struct {
	Source string
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
