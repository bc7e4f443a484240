package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

// Renderer turns a view into a PNG image.
type Renderer interface {
	Render(ctx context.Context, view filter.View, dst io.Writer) error
}

// drawable refuses a view that has no rows or more than maxRows rows.
// A maxRows of zero means no limit.
func drawable(view filter.View, maxRows int) error {
	if view.Empty() {
		return ErrEmptyView
	}
	if maxRows > 0 && view.Len() > maxRows {
		return fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, view.Len(), maxRows)
	}
	return nil
}

// Layout describes the table geometry in inches. Pixel sizes follow from DPI.
type Layout struct {
	DPI          float64
	FontSize     float64 // points
	FirstColumn  float64
	OtherColumns float64
	HeaderHeight float64
	RowHeight    float64
	Margin       float64
	Padding      float64
	MaxRows      int
}

// DefaultLayout is a 14 by 8 inch figure: the first column takes 0.2 of the
// width and the others 0.1, the header row 0.08 of the height and body rows
// 0.05.
func DefaultLayout() Layout {
	return Layout{
		DPI:          config.ImageDPI,
		FontSize:     12,
		FirstColumn:  14 * 0.2,
		OtherColumns: 14 * 0.1,
		HeaderHeight: 8 * 0.08,
		RowHeight:    8 * 0.05,
		Margin:       0.1,
		Padding:      0.05,
		MaxRows:      config.DefaultMaxImageRows,
	}
}

func (l Layout) px(inches float64) int {
	return int(inches*l.DPI + 0.5)
}

// RasterRenderer draws the table directly with the Go fonts.
type RasterRenderer struct {
	layout Layout

	once    sync.Once
	regular font.Face
	bold    font.Face
	err     error
}

// NewRasterRenderer returns a renderer using layout.
func NewRasterRenderer(layout Layout) *RasterRenderer {
	return &RasterRenderer{layout: layout}
}

func (r *RasterRenderer) faces() (regular, bold font.Face, err error) {
	r.once.Do(func() {
		opts := &opentype.FaceOptions{Size: r.layout.FontSize, DPI: r.layout.DPI, Hinting: font.HintingFull}
		r.regular, r.err = loadFace(goregular.TTF, opts)
		if r.err != nil {
			return
		}
		r.bold, r.err = loadFace(gobold.TTF, opts)
	})
	return r.regular, r.bold, r.err
}

func loadFace(ttf []byte, opts *opentype.FaceOptions) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, opts)
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// Render implements Renderer. An empty view yields ErrEmptyView and a view
// longer than the layout's MaxRows yields ErrTooManyRows.
func (r *RasterRenderer) Render(ctx context.Context, view filter.View, dst io.Writer) error {
	if err := drawable(view, r.layout.MaxRows); err != nil {
		return err
	}
	regular, bold, err := r.faces()
	if err != nil {
		return err
	}

	l := r.layout
	columns := view.Columns()
	widths := make([]int, len(columns))
	for i := range widths {
		widths[i] = l.px(l.OtherColumns)
	}
	if len(widths) > 0 {
		widths[0] = l.px(l.FirstColumn)
	}
	headerH, rowH, margin := l.px(l.HeaderHeight), l.px(l.RowHeight), l.px(l.Margin)
	pad := l.px(l.Padding)

	tableW := 0
	for _, w := range widths {
		tableW += w
	}
	tableH := headerH + rowH*view.Len()

	img := image.NewRGBA(image.Rect(0, 0, tableW+2*margin, tableH+2*margin))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	line := max(1, l.px(1.0/144))
	drawRow := func(y, h int, cells []string, face font.Face) {
		x := margin
		for i, text := range cells {
			cell := image.Rect(x, y, x+widths[i], y+h)
			strokeRect(img, cell, line)
			drawCentered(img, face, fitText(face, text, widths[i]-2*pad), cell)
			x += widths[i]
		}
	}

	drawRow(margin, headerH, columns, bold)
	for i, row := range view.Rows {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		drawRow(margin+headerH+i*rowH, rowH, view.RowCells(row), regular)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	out, err := withPhysicalDPI(buf.Bytes(), l.DPI)
	if err != nil {
		return err
	}
	_, err = dst.Write(out)
	return err
}

func strokeRect(img draw.Image, r image.Rectangle, w int) {
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, image.Black, image.Point{}, draw.Src)
	}
}

func drawCentered(img draw.Image, face font.Face, text string, cell image.Rectangle) {
	if text == "" {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	width := d.MeasureString(text).Ceil()
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()

	x := cell.Min.X + (cell.Dx()-width)/2
	y := cell.Min.Y + (cell.Dy()-textH)/2 + m.Ascent.Ceil()
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// fitText shortens text with an ellipsis until it fits in maxWidth pixels.
func fitText(face font.Face, text string, maxWidth int) string {
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + "…"
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			return candidate
		}
	}
	return "…"
}
