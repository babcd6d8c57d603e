package forecast

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a validation failure: the caller supplied a
// symbol whose history is too short to train on. Not retryable.
var ErrInsufficientData = errors.New("insufficient data")

// ErrRegistryConsistency marks a persistence bug: a just-trained model could
// not be reloaded from the registry. Fatal.
var ErrRegistryConsistency = errors.New("model registry inconsistency")

func insufficientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}
