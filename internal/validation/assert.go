// Package validation provides helpers for contract enforcement in
// constructors and wiring code.
package validation

import "fmt"

// AssertNotNil panics if the provided pointer is nil. It is meant for
// constructors whose dependencies are mandatory: a nil here is a programmer
// error in the composition root, not a runtime condition to recover from.
//
// Usage:
//
//	validation.AssertNotNil(df, "datafile")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}
