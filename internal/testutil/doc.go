// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing transitions, sessions and model programs.
// These helpers are not intended for production usage.
package testutil
