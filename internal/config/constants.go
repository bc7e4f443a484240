package config

// Application info
const (
	AppName    = "AMC eSelector"
	AppVersion = "1.0.0"
)

// File names
const (
	DefaultDatasetFile = "cleaners.xlsx"

	CSVExportName  = "filtered_results.csv"
	PNGExportName  = "filtered_results.png"
	XLSXExportName = "filtered_results.xlsx"
)

// ImageDPI is the resolution of rendered table images.
const ImageDPI = 300

// DefaultMaxImageRows caps the rows drawn into one image. At ImageDPI a body
// row is 120px tall, so the default keeps a raster image near 250 MB.
const DefaultMaxImageRows = 100
