package taskset

import "fmt"

// ConfigurationError reports an invalid task or task set declaration.
type ConfigurationError struct {
	Subject string // task or task set the problem belongs to, may be empty
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %q: %s", e.Subject, e.Reason)
}

func configErrorf(subject, format string, args ...interface{}) error {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
