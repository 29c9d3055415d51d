package policy

import "fmt"

// PackError indicates a rule pack could not be loaded or validated.
type PackError struct {
	Path  string
	Cause error
}

func (e *PackError) Error() string {
	return fmt.Sprintf("rule pack %q: %v", e.Path, e.Cause)
}

func (e *PackError) Unwrap() error { return e.Cause }

// ReloadError indicates the gate could not be rebuilt from a pack source.
// The previous gate remains in effect.
type ReloadError struct {
	Source string
	Cause  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("failed to reload rule packs from %s: %v", e.Source, e.Cause)
}

func (e *ReloadError) Unwrap() error { return e.Cause }
