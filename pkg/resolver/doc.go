// Package resolver implements the field side effects of the wizard engine.
//
// A Registry maps trigger fields to four kinds of effect:
//
//   - Expansion: selecting an entity overwrites a cluster of dependent fields
//     atomically. Nothing from a previous selection survives.
//   - Derivation: synchronous recomputation (rental days, totals) run to a
//     fixed point right after the write, in the same call.
//   - OptionSource: reference option lists, optionally cascading from a
//     parent field. Fetches are asynchronous; a Tracker decides which result
//     may still be applied (last request wins).
//   - Picker: entity search backing a selection.
//
// The registry holds no session state. Sessions own the FieldSet and the
// Tracker and call into the registry.
package resolver
