// Package filter reconciles filter selections against a dataset.
//
// Every operation is a pure function of a table and a State and returns a
// new State together with a changed flag, so callers refresh only when a
// selection actually moved. ComputeView intersects the active constraints:
//
//	state := filter.NewState(table)
//	state, changed, err := filter.ApplySelection(table, state, "region", []string{"DE"})
//	view := filter.ComputeView(table, state, filter.RangesAlways)
package filter
