// Package level implements the thin shard container described in
// spec.md §4.4. A Level does not itself know about layout policy; the
// structure package decides whether to call AppendFromShards (tiering),
// Reconstruct (leveling), or SetPending/Finalize (BSM flattening) based
// on the configured policy, and a Level simply executes whichever
// operation it is told to.
package level
