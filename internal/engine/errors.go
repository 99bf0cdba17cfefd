package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Registration and graph errors. Use errors.Is to check for them.
var (
	ErrUnknownPhase        = errors.New("unknown phase")
	ErrDuplicatePhase      = errors.New("phase already registered")
	ErrDuplicateUnit       = errors.New("work unit already registered")
	ErrUnknownDependency   = errors.New("unknown dependency")
	ErrSelfDependency      = errors.New("work unit depends on itself")
	ErrForwardDependency   = errors.New("sequential unit depends on a later unit")
	ErrCycle               = errors.New("dependency cycle detected")
	ErrAlreadyRan          = errors.New("pipeline already ran")
	ErrInvalidRegistration = errors.New("invalid registration")
)

// RegistrationError carries the phase and unit a failure relates to.
type RegistrationError struct {
	Kind  error
	Phase string
	Unit  string
	Msg   string
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Phase != "" {
		fmt.Fprintf(&b, " (phase %q", e.Phase)
		if e.Unit != "" {
			fmt.Fprintf(&b, ", unit %q", e.Unit)
		}
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *RegistrationError) Unwrap() error { return e.Kind }

func registrationErr(kind error, phase, unit string, format string, args ...any) error {
	return &RegistrationError{Kind: kind, Phase: phase, Unit: unit, Msg: fmt.Sprintf(format, args...)}
}

func cycleErr(phase string, path []string) error {
	return &RegistrationError{Kind: ErrCycle, Phase: phase, Msg: strings.Join(path, " -> ")}
}
