package registry

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKey                   = errors.New("unknown model key")
	ErrUnknownID                    = errors.New("unknown model id")
	ErrDuplicateKey                 = errors.New("duplicate model key")
	ErrDuplicateID                  = errors.New("duplicate model id")
	ErrEmptyKey                     = errors.New("empty model key")
	ErrEmptyID                      = errors.New("empty model id")
	ErrInvalidCapabilityCombination = errors.New("invalid capability combination")
	ErrUnknownCapability            = errors.New("unknown capability")
	ErrUnknownProvider              = errors.New("unknown provider kind")
)

// ConfigError is a construction-time violation tied to one entry.
type ConfigError struct {
	Key    Key
	ID     string
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("model %q", string(e.Key))
	if e.ID != "" {
		msg += fmt.Sprintf(" (id %q)", e.ID)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LookupError is returned when a key or id is not in the registry.
type LookupError struct {
	Key string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err, e.Key)
}

func (e *LookupError) Unwrap() error { return e.Err }
