// Package structure implements the extension structure of spec.md
// §4.2: an ordered vector of levels governed by a layout policy
// (tiering, leveling, or Bentley-Saxe flattening), together with the
// pure planner that decides what reconstruction work a flush or a
// tombstone-density violation requires, and the executor that carries
// a plan out against a cloned structure before it is installed as a
// new epoch's structure.
//
// Planning and execution are deliberately split: PlanFlushFromBuffer
// and PlanCompactions touch only a scratch state vector and never
// mutate the structure, so they can run synchronously on the insert
// path without taking the structure's lock for longer than a snapshot
// read. ExecuteTask does the actual shard construction and is always
// run against a Clone, never the structure an epoch's readers are
// using.
package structure
