// Package epoch implements the consistent-snapshot mechanism of
// spec.md §4.5. An Epoch is the unit callers acquire a reference to
// before reading (StartJob/EndJob); Retirable reports when every reader
// has released it. The façade does not consult Retirable: it replaces
// the current-epoch pointer and leaves the predecessor to the garbage
// collector once the jobs still holding it finish. Epochs never mutate
// their Structure in place; the façade's flush path works against a
// Clone and only stores the new current-epoch pointer once the clone is
// fully reconstructed.
package epoch
