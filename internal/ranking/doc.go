// Package ranking turns the raw plan list into the ordered subset shown to a
// viewer.
//
// The pipeline is a pure function of its inputs: the plans, the viewer's
// position and resolved city, the emoji and date filters, the current instant
// and the calendar location used to decide what "today" means. It performs no
// I/O and never mutates the slice it is given, so callers re-run it whenever
// any input changes (a new position fix, a late city resolution, a filter
// change or a refreshed plan list).
//
// Filtering keeps plans that match the emoji filter and fall inside the
// temporal window. Ordering is by calendar day, then same-city, then
// distance, then start time.
package ranking
