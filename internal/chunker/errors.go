package chunker

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("invalid chunking configuration")

// ConfigurationError reports a chunking parameter that cannot work. It is
// returned at construction time, before any text is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("chunking config: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
