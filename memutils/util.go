package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckPositive returns an error wrapping sentinel if number is zero or negative
func CheckPositive[T Number](number T, name string, sentinel error) error {
	if number <= 0 {
		return cerrors.Wrapf(sentinel, "%s is %d", name, number)
	}
	return nil
}

// Percent returns part as a percentage of whole, or 0 if whole is empty
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}

	return float64(part) / float64(whole) * 100
}

// Validatable is implemented by ledgers and other structures that can check their own
// consistency. DebugValidate acts upon it.
type Validatable interface {
	Validate() error
}
