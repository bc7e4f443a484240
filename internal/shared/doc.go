// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides the sample cleaner dataset, a workbook
// writer for loader tests, and an in-memory slog handler for asserting on
// log output:
//
//	logger, capture := testutil.NewTestLogger(t)
//	table := testutil.SampleTable(t)
//	...
//	testutil.AssertLogged(t, capture, slog.LevelInfo, "dataset loaded")
package shared
