// Package exporter writes a filtered view as a download.
//
// FileWriter saves a view under the exports directory with the fixed file
// names, writing beside the final name and renaming into place. CSVWriter
// streams filtered_results.csv with every column of the view and
// no index column. Numeric columns are written in their shortest exact form
// and missing values are left empty. WriteXLSX produces the same table as a
// workbook.
//
// Images go through a Renderer. RasterRenderer draws a fixed-layout table at
// 300 DPI with the Go fonts; ChromeRenderer screenshots the same table from
// headless Chrome. Both refuse an empty view with ErrEmptyView and a view
// longer than their row limit with ErrTooManyRows. RenderTemp
// wraps either one so the caller gets a temp file plus a cleanup func.
//
// Example usage:
//
//	fw := exporter.NewFileWriter(paths, cfg.Export, logger)
//	path, err := fw.WriteFile(ctx, view, exporter.FormatCSV)
//
//	imagePath, cleanup, err := exporter.RenderTemp(ctx, exporter.NewRenderer(cfg.Export, logger), view, paths.CacheDir)
//	defer cleanup()
package exporter
