// Package tui is the terminal front end of the selector. It drives the same
// filter reconciler as the web page: a list of the ten filters, a value
// picker for categorical fields, bracket keys for numeric bounds and a
// results table.
package tui
