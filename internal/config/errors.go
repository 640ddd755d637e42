package config

import "fmt"

// ConfigurationError is spec §7's fail-fast startup error.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}
