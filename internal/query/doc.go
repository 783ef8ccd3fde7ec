// Package query defines the object-safe Query contract of spec.md §6.
// Concrete query algorithms (range count, range sample, point lookup,
// ...) are external collaborators per spec.md §1; this repository ships
// exactly one in-tree example, internal/examplequery, solely so the
// framework's own tests exercise the contract end to end against a real
// implementation rather than a mock.
package query
