package exporter

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/image/font"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
)

func sampleView(t *testing.T) (*dataset.Table, filter.View) {
	t.Helper()
	table := testutil.SampleTable(t)
	return table, filter.ComputeView(table, filter.NewState(table), filter.RangesAlways)
}

func emptyView(t *testing.T) filter.View {
	t.Helper()
	table := testutil.SampleTable(t)
	s, _, err := filter.ApplySelection(table, filter.NewState(table), "region", []string{"US"})
	require.NoError(t, err)
	s, _, err = filter.ApplySelection(table, s, "application", []string{"Glass"})
	require.NoError(t, err)
	v := filter.ComputeView(table, s, filter.RangesAlways)
	require.True(t, v.Empty())
	return v
}

// physicalDPI reads the resolution back from a pHYs chunk.
func physicalDPI(data []byte) (float64, bool) {
	for off := 8; off+12 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[off:]))
		switch string(data[off+4 : off+8]) {
		case "pHYs":
			return float64(binary.BigEndian.Uint32(data[off+8:])) * 0.0254, data[off+16] == 1
		case "IDAT":
			return 0, false
		}
		off += 12 + n
	}
	return 0, false
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats("csv, PNG,,csv,xlsx")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatPNG, FormatXLSX}, formats)

	_, err = ParseFormats("csv,pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Equal(t, "filtered_results.png", FormatPNG.FileName())
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "filtered_results.csv", FormatCSV.FileName())
}

func TestCSVWriteRoundTrip(t *testing.T) {
	table, view := sampleView(t)
	require.Equal(t, table.Len(), view.Len())

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().Write(&buf, view, WriteOptions{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, view.Len()+1)
	assert.Equal(t, strings.Join(testutil.SampleHeader, ","), lines[0], "no index column")
	assert.Equal(t, "CL-180,US,Neutral,Aluminium,Degreasing,Ultrasonic,None,Yes,,20,55", lines[9], "missing numbers stay empty")

	back, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	again := filter.ComputeView(back, filter.NewState(back), filter.RangesAlways)
	assert.Equal(t, view.Columns(), again.Columns())
	assert.Equal(t, view.Cells(), again.Cells())
}

func TestCSVWriteRoundTripFilteredSubset(t *testing.T) {
	table, err := dataset.NewTable(testutil.SampleHeader, [][]string{
		{`CL-1, "Heavy"`, "US", "Alkaline", "Steel", "Degreasing", "Spray", "Low", "Yes", " 5.50 ", "abc", "1e2"},
		{"CL-2", "DE", "Acidic", "Steel", "Pickling", "Spray", "Low", "No", "3", "20", "40"},
		{"CL-3", "US", "Acidic", "Copper", "Pickling", "Immersion", "High", "No", "7", "25", "60"},
	})
	require.NoError(t, err)
	s, _, err := filter.ApplySelection(table, filter.NewState(table), "region", []string{"US"})
	require.NoError(t, err)
	view := filter.ComputeView(table, s, filter.RangesAlways)
	require.Equal(t, 2, view.Len())

	want := [][]string{
		{`CL-1, "Heavy"`, "US", "Alkaline", "Steel", "Degreasing", "Spray", "Low", "Yes", "5.5", "", "100"},
		{"CL-3", "US", "Acidic", "Copper", "Pickling", "Immersion", "High", "No", "7", "25", "60"},
	}
	assert.Equal(t, want, view.Cells(), "displayed cells use the parsed numbers")

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().Write(&buf, view, WriteOptions{}))
	assert.Contains(t, buf.String(), `"CL-1, ""Heavy""",US,`)

	back, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	again := filter.ComputeView(back, filter.NewState(back), filter.RangesAlways)
	assert.Equal(t, view.Columns(), again.Columns())
	assert.Equal(t, view.Cells(), again.Cells(), "the file holds exactly what was displayed")
}

func TestCSVNormalisesNumbers(t *testing.T) {
	table, err := dataset.NewTable(testutil.SampleHeader, [][]string{
		{"CL-1", "US", "Alkaline", "Steel", "Degreasing", "Spray", "Low", "Yes", " 5.50 ", "abc", "1e2"},
	})
	require.NoError(t, err)
	view := filter.ComputeView(table, filter.NewState(table), filter.RangesAlways)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().Write(&buf, view, WriteOptions{}))
	assert.Contains(t, buf.String(), "CL-1,US,Alkaline,Steel,Degreasing,Spray,Low,Yes,5.5,,100\n")
}

func TestFileWriterCSVWithBOM(t *testing.T) {
	_, view := sampleView(t)
	fw := &FileWriter{Dir: filepath.Join(t.TempDir(), "exports"), CSV: WriteOptions{BOMPrefix: true}}

	path, err := fw.WriteFile(context.Background(), view, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fw.Dir, config.CSVExportName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))

	back, err := dataset.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, view.Len(), back.Len())
}

func TestCSVEmptyViewHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().Write(&buf, emptyView(t), WriteOptions{}))
	assert.Equal(t, strings.Join(testutil.SampleHeader, ",")+"\n", buf.String())
}

func TestRasterRenderer(t *testing.T) {
	_, view := sampleView(t)
	layout := DefaultLayout()

	var buf bytes.Buffer
	require.NoError(t, NewRasterRenderer(layout).Render(context.Background(), view, &buf))

	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	margin := 30
	wantW := 840 + 420*(len(view.Columns())-1) + 2*margin
	wantH := 192 + 120*view.Len() + 2*margin
	assert.Equal(t, wantW, img.Bounds().Dx())
	assert.Equal(t, wantH, img.Bounds().Dy())

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "margin is white")
	r, g, b, _ = img.At(margin, margin).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b}, "table corner is a grid line")

	dpi, ok := physicalDPI(buf.Bytes())
	require.True(t, ok)
	assert.InDelta(t, 300, dpi, 0.1)
}

func TestRasterRendererEmptyView(t *testing.T) {
	var buf bytes.Buffer
	err := NewRasterRenderer(DefaultLayout()).Render(context.Background(), emptyView(t), &buf)
	assert.ErrorIs(t, err, ErrEmptyView)
	assert.Zero(t, buf.Len())
}

func TestRenderersRefuseLongViews(t *testing.T) {
	_, view := sampleView(t)
	layout := DefaultLayout()
	layout.MaxRows = view.Len() - 1

	renderers := map[string]Renderer{
		"raster": NewRasterRenderer(layout),
		"chrome": NewChromeRenderer("/nonexistent/chrome", time.Second, config.ImageDPI, view.Len()-1, nil),
	}
	for name, r := range renderers {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := r.Render(context.Background(), view, &buf)
			assert.ErrorIs(t, err, ErrTooManyRows)
			assert.ErrorContains(t, err, "10 rows, limit 9")
			assert.Zero(t, buf.Len())
		})
	}

	layout.MaxRows = view.Len()
	var buf bytes.Buffer
	require.NoError(t, NewRasterRenderer(layout).Render(context.Background(), view, &buf), "the limit is inclusive")
}

func TestFileWriterRefusesLongImage(t *testing.T) {
	_, view := sampleView(t)
	layout := DefaultLayout()
	layout.MaxRows = 2
	dir := t.TempDir()
	fw := &FileWriter{Dir: dir, Renderer: NewRasterRenderer(layout)}

	_, err := fw.WriteFile(context.Background(), view, FormatPNG)
	assert.ErrorIs(t, err, ErrTooManyRows)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial image is left behind")
}

func TestFitText(t *testing.T) {
	r := NewRasterRenderer(DefaultLayout())
	face, _, err := r.faces()
	require.NoError(t, err)

	assert.Equal(t, "US", fitText(face, "US", 400))

	long := strings.Repeat("Passivation ", 6)
	got := fitText(face, long, 400)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, font.MeasureString(face, got).Ceil(), 400)
	assert.Equal(t, "…", fitText(face, "WWWW", 1))
}

func TestWithPhysicalDPIRejectsGarbage(t *testing.T) {
	_, err := withPhysicalDPI([]byte("not an image at all, definitely not"), 300)
	assert.Error(t, err)
}

func TestRenderTemp(t *testing.T) {
	_, view := sampleView(t)
	dir := filepath.Join(t.TempDir(), "cache")

	path, cleanup, err := RenderTemp(context.Background(), NewRasterRenderer(DefaultLayout()), view, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, dir, filepath.Dir(path))

	cleanup()
	assert.NoFileExists(t, path)
	cleanup()
}

func TestRenderTempEmptyView(t *testing.T) {
	dir := t.TempDir()
	path, cleanup, err := RenderTemp(context.Background(), NewRasterRenderer(DefaultLayout()), emptyView(t), dir)
	assert.ErrorIs(t, err, ErrEmptyView)
	assert.Empty(t, path)
	cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file is created for an empty view")
}

func TestNewRenderer(t *testing.T) {
	raster := NewRenderer(config.ExportConfig{ImageRenderer: "raster"}, nil)
	require.IsType(t, &RasterRenderer{}, raster)
	assert.Equal(t, config.DefaultMaxImageRows, raster.(*RasterRenderer).layout.MaxRows, "zero falls back to the default limit")

	raster = NewRenderer(config.ExportConfig{ImageRenderer: "raster", MaxImageRows: 7}, nil)
	assert.Equal(t, 7, raster.(*RasterRenderer).layout.MaxRows)

	chrome := NewRenderer(config.ExportConfig{ImageRenderer: "chrome", ImageTimeout: time.Second}, nil)
	require.IsType(t, &ChromeRenderer{}, chrome)
	assert.Equal(t, config.DefaultMaxImageRows, chrome.(*ChromeRenderer).maxRows)
}

func TestChromeRenderer(t *testing.T) {
	chrome := os.Getenv("ESELECTOR_TEST_CHROME")
	if chrome == "" {
		t.Skip("set ESELECTOR_TEST_CHROME to a Chrome binary to run")
	}
	_, view := sampleView(t)

	var buf bytes.Buffer
	r := NewChromeRenderer(chrome, 30*time.Second, config.ImageDPI, config.DefaultMaxImageRows, nil)
	require.NoError(t, r.Render(context.Background(), view, &buf))

	_, err := png.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	dpi, ok := physicalDPI(buf.Bytes())
	assert.True(t, ok)
	assert.InDelta(t, 300, dpi, 0.1)

	assert.ErrorIs(t, r.Render(context.Background(), emptyView(t), &buf), ErrEmptyView)
}

func TestWriteXLSX(t *testing.T) {
	_, view := sampleView(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, view))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, view.Len()+1)
	assert.Equal(t, testutil.SampleHeader, rows[0])
	assert.Equal(t, "CL-100", rows[1][0])

	back, err := dataset.ReadWorkbook(f, xlsxSheet)
	require.NoError(t, err)
	assert.Equal(t, view.Len(), back.Len())
	n := back.Number(back.Records()[9], dataset.ColConcentration)
	assert.True(t, n.Valid)
	assert.Equal(t, 1.5, n.Value)
	assert.False(t, back.Number(back.Records()[8], dataset.ColConcentration).Valid)
}

func TestFileWriter(t *testing.T) {
	_, view := sampleView(t)
	dir := filepath.Join(t.TempDir(), "out")
	logger, logs := testutil.NewTestLogger(t)
	fw := &FileWriter{Dir: dir, Logger: logger}

	for _, f := range []Format{FormatCSV, FormatPNG, FormatXLSX} {
		path, err := fw.WriteFile(context.Background(), view, f)
		require.NoError(t, err, f)
		assert.Equal(t, filepath.Join(dir, f.FileName()), path)
		assert.FileExists(t, path)
	}
	testutil.AssertLogged(t, logs, slog.LevelInfo, "export written")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files are left behind")

	data, err := os.ReadFile(filepath.Join(dir, config.CSVExportName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Product,Country,"))
}

func TestFileWriterSkipsEmptyImage(t *testing.T) {
	dir := t.TempDir()
	fw := &FileWriter{Dir: dir}

	_, err := fw.WriteFile(context.Background(), emptyView(t), FormatPNG)
	assert.ErrorIs(t, err, ErrEmptyView)
	assert.NoFileExists(t, filepath.Join(dir, config.PNGExportName))

	path, err := fw.WriteFile(context.Background(), emptyView(t), FormatCSV)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
