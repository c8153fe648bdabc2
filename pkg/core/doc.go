// Package core defines the shared language of the LeapETL system.
//
// This package contains:
//   - The in-memory table model (Table, Column, Value, Kind)
//   - Adapter configuration and metadata types
//   - Run history entities and the Store interface
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
