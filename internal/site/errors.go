package site

// ConfigurationError reports an invalid site configuration. It is returned
// synchronously from New; per-request failures never produce it.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}
