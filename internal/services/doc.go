// Package services holds the application logic behind the HTTP handlers.
//
// SelectorService keeps one filter state per session in a session.Store
// and runs every interaction through the filter package: it applies
// selections and ranges, reports whether anything changed, computes the
// view and produces the CSV, XLSX and PNG downloads. A change is pushed to
// the session's open tabs through a Notifier and counted in the business
// metrics.
//
// HealthService reports liveness and readiness for the dataset, the cache
// directory, the websocket hub and the session store.
package services
