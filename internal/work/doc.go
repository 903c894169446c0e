// Package work runs refreshes of the operation collection.
//
// A refresh is a Plan of units. Months that are at least two months old are
// read from the monthly xlsx release; the remaining days up to today are read
// from the daily results and offer pages:
//
//	release 2021-04 ... release 2024-01 | daily 2024-02-01 ... daily 2024-03-15
//
// The Runner executes units concurrently with a bounded worker count.
// Units whose publication is missing or lacks the expected table are
// skipped and reported; classification errors abort the whole run, since
// continuing would silently lose volume.
//
// The Service owns the in-memory collection. It merges each run's result
// into it (fetched dates replace stored ones), persists it and renders the
// report. Only one refresh runs at a time.
package work
