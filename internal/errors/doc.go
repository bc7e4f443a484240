// Package errors renders failures of the selector API as RFC 7807 problem
// documents.
//
// Handlers return plain Go errors. ErrorHandler maps the sentinel errors of
// the filter, dataset and exporter packages onto HTTP statuses: an unknown
// filter field is a 404, a rejected selection or range a 400, and an export
// of an empty view a 422. APIError carries an explicit status for the cases
// handlers decide themselves. AppError classifies failures that happen
// outside a request, such as loading the dataset at startup.
package errors
