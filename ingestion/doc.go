// Package ingestion runs the recurring background cycle that pulls new items
// from a source into the memory store.
//
// A Scheduler owns one source adapter and one set of categories. Each cycle
// walks the categories in configured order, lists a bounded batch per
// category, checks every candidate against the DedupStore and persists only
// the ones not seen before.
//
// Failures are isolated: an unavailable source fails only its category, and a
// failed write fails only its item. Nothing escapes a cycle; failures are
// accumulated in the returned CycleReport and logged.
//
// Cycles never overlap. The next cycle is scheduled CheckInterval after the
// previous one returns, and Stop lets an in-flight cycle finish before
// returning.
package ingestion
