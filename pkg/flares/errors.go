package flares

import (
	"errors"
	"fmt"
)

var ErrConfig = errors.New("flare config error")

// ConfigError reports a flare resource that exists but cannot be read as a
// flare config (missing or malformed frontmatter).
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ErrConfig.Error()
	}
	return fmt.Sprintf("%s for flare %q: %s", ErrConfig, e.Name, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
