// Package dataset loads cleaning-product records from spreadsheets.
//
// A Table keeps every column of the source sheet in order. The seven
// categorical and three numeric columns listed in CategoricalColumns and
// NumericColumns are required; numeric cells are coerced leniently, so a
// blank or malformed value is recorded as missing instead of failing the
// load.
//
// Sources:
//   - .xlsx / .xlsm workbooks (first sheet unless one is named)
//   - .csv files, including files produced by the CSV exporter
//   - Google Sheets ranges through the Sheets v4 API
package dataset
