// Package validation provides the constructor-time checks shared by every
// limiter. Each helper returns a *errors.ValidationError, so a failed check
// always unwraps to errors.ErrInvalidConfiguration.
package validation
