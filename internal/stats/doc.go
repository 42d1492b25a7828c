// Package stats derives every aggregate the ledger shows from the raw bill
// list: period filters, category sums, day/month series, day groups and
// summaries.
//
// All functions are pure. They never mutate their input, never fail, and
// interpret timestamps in the *time.Location they are given (nil means
// time.Local). Callers must pass the same location everywhere so that a bill
// close to midnight lands in the same bucket in every view.
package stats
