package exporter

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

var chromeTable = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { margin: 0.1in; font-family: "Go", "DejaVu Sans", sans-serif; font-size: 12pt; background: #fff; }
table { border-collapse: collapse; table-layout: fixed; }
th, td { border: 1px solid #000; text-align: center; overflow: hidden; white-space: nowrap; text-overflow: ellipsis; padding: 0 0.05in; }
th { height: 0.64in; font-weight: bold; }
td { height: 0.4in; }
col.first { width: 2.8in; }
col.other { width: 1.4in; }
</style></head><body>
<table id="results">
<colgroup>{{range $i, $c := .Columns}}<col class="{{if eq $i 0}}first{{else}}other{{end}}">{{end}}</colgroup>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table></body></html>`))

// ChromeRenderer screenshots the table rendered as HTML in headless Chrome.
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
	dpi      float64
	maxRows  int
	logger   *slog.Logger
}

// NewChromeRenderer creates a renderer. An empty execPath lets chromedp
// find the browser. Views longer than maxRows are refused; zero disables
// the limit.
func NewChromeRenderer(execPath string, timeout time.Duration, dpi float64, maxRows int, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{execPath: execPath, timeout: timeout, dpi: dpi, maxRows: maxRows, logger: logger}
}

// Render implements Renderer.
func (c *ChromeRenderer) Render(ctx context.Context, view filter.View, dst io.Writer) error {
	if err := drawable(view, c.maxRows); err != nil {
		return err
	}

	rows := make([][]string, len(view.Rows))
	for i, row := range view.Rows {
		rows[i] = view.RowCells(row)
	}
	var page bytes.Buffer
	if err := chromeTable.Execute(&page, struct {
		Columns []string
		Rows    [][]string
	}{view.Columns(), rows}); err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	start := time.Now()
	var shot []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1280, 720, chromedp.EmulateScale(c.dpi/96)),
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(page.String())),
		chromedp.WaitVisible(`#results`, chromedp.ByID),
		chromedp.Screenshot(`#results`, &shot, chromedp.ByID),
	)
	if err != nil {
		return fmt.Errorf("chrome screenshot: %w", err)
	}
	c.logger.DebugContext(ctx, "chrome render finished",
		slog.Int("rows", view.Len()),
		slog.Duration("elapsed", time.Since(start)))

	out, err := withPhysicalDPI(shot, c.dpi)
	if err != nil {
		return err
	}
	_, err = dst.Write(out)
	return err
}
