package providers

import (
	"errors"
	"fmt"
)

var ErrResolution = errors.New("provider resolution failed")

// ResolutionError reports that every fallback step was exhausted without
// producing a usable backend.
type ResolutionError struct {
	NameHint string
	TypeHint string
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return ErrResolution.Error()
	}
	if e.NameHint == "" && e.TypeHint == "" {
		return fmt.Sprintf("%s: no providers configured", ErrResolution)
	}
	return fmt.Sprintf("%s: no provider matches name=%q type=%q and no default is configured", ErrResolution, e.NameHint, e.TypeHint)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
