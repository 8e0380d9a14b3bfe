// Package internal holds tiny helpers shared across the ds subpackages.
package internal

// Zero returns the zero value of T.
func Zero[T any]() T {
	var z T
	return z
}
