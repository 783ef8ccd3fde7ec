// Package testrecord provides a minimal Record implementation shared by
// this repository's own tests (buffer, level, structure, dynamic). It is
// test-only scaffolding, not one of the framework's public contracts.
package testrecord

import (
	"fmt"

	"github.com/dreamware/dynext/internal/record"
)

// Int is a KVP record where both the key and the value are the same
// integer, used throughout the test suite for range and point queries.
type Int struct {
	Key   int
	Value int
}

// New constructs an Int record with Key == Value == n.
func New(n int) Int { return Int{Key: n, Value: n} }

func (r Int) Less(other record.Record) bool {
	return r.Key < other.(Int).Key
}

func (r Int) Equal(other record.Record) bool {
	o, ok := other.(Int)
	return ok && r.Key == o.Key
}

func (r Int) KeyBytes() []byte {
	return []byte(fmt.Sprintf("%020d", r.Key))
}

func (r Int) Value_() int { return r.Value }

func (r Int) String() string { return fmt.Sprintf("Int(%d,%d)", r.Key, r.Value) }
