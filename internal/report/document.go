// Package report renders service orders as A4 PDF documents.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/unicode/norm"

	"github.com/Additional-Code/servicedesk/internal/entity"
)

const (
	margin       = 50.0
	footerMargin = 70.0
	fontFamily   = "Helvetica"
)

// Palette used across documents.
const (
	colorTitle     = "#2563eb"
	colorText      = "#1e293b"
	colorMuted     = "#64748b"
	colorDivider   = "#e2e8f0"
	colorBoxFill   = "#dbeafe"
	colorBoxStroke = "#3b82f6"
	colorBoxTitle  = "#1e40af"
	colorBoxValue  = "#1e3a8a"
	colorUnknown   = "#000000"
)

// StatusColor returns the hex color associated with a status.
func StatusColor(s entity.Status) string {
	switch s {
	case entity.StatusOpen:
		return "#dc3545"
	case entity.StatusInProgress:
		return "#ffc107"
	case entity.StatusClosed:
		return "#28a745"
	default:
		return colorUnknown
	}
}

// document wraps fpdf with the core-font UTF-8 translation and the
// helpers shared by both layouts.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, footerMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("servicedesk", true)
	return &document{
		pdf: pdf,
		// Core fonts are cp1252; Portuguese accents fit in it.
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (d *document) pageWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w
}

func (d *document) pageHeight() float64 {
	_, h := d.pdf.GetPageSize()
	return h
}

func (d *document) contentWidth() float64 {
	return d.pageWidth() - 2*margin
}

func (d *document) font(style string, size float64, hex string) {
	d.pdf.SetFont(fontFamily, style, size)
	r, g, b := rgb(hex)
	d.pdf.SetTextColor(r, g, b)
}

// centered writes a full-width centered line of text.
func (d *document) centered(text string, lineHeight float64) {
	d.pdf.SetX(margin)
	d.pdf.CellFormat(d.contentWidth(), lineHeight, d.text(text), "", 1, "C", false, 0, "")
}

// paragraph writes wrapped text across the content width.
func (d *document) paragraph(text string, lineHeight float64) {
	d.pdf.SetX(margin)
	d.pdf.MultiCell(d.contentWidth(), lineHeight, d.text(text), "", "L", false)
}

// divider draws a horizontal rule at the current position.
func (d *document) divider(width float64) {
	r, g, b := rgb(colorDivider)
	d.pdf.SetDrawColor(r, g, b)
	d.pdf.SetLineWidth(width)
	y := d.pdf.GetY()
	d.pdf.Line(margin, y, d.pageWidth()-margin, y)
}

// field writes "label value" at (x, y) with the value wrapped to valueWidth
// and returns the height consumed.
func (d *document) field(label, value string, x, y, labelWidth, valueWidth, size, lineHeight float64) float64 {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}

	d.font("", size, colorMuted)
	d.pdf.SetXY(x, y)
	d.pdf.CellFormat(labelWidth, lineHeight, d.text(label), "", 0, "L", false, 0, "")

	d.font("", size, colorText)
	// SplitText indexes the core font width table by rune, so it must see
	// Latin-1 runes rather than the translated cp1252 bytes.
	lines := d.pdf.SplitText(latin1(value), valueWidth)
	for i, line := range lines {
		d.pdf.SetXY(x+labelWidth, y+float64(i)*lineHeight)
		d.pdf.CellFormat(valueWidth, lineHeight, d.tr(line), "", 0, "L", false, 0, "")
	}
	return float64(len(lines)) * lineHeight
}

// text prepares UTF-8 input for the cp1252 core fonts.
func (d *document) text(s string) string {
	return d.tr(latin1(s))
}

// typographic replacements for runes the core fonts cannot show.
var latin1Fallback = map[rune]string{
	'\u2018': "'", '\u2019': "'", '\u201a': "'", '\u201b': "'",
	'\u201c': "\"", '\u201d': "\"", '\u201e': "\"", '\u201f': "\"",
	'\u2013': "-", '\u2014': "-", '\u2212': "-",
	'\u2026': "...", '\u2022': "*", '\u00a0': " ",
	'\u20ac': "EUR",
}

// latin1 composes s (NFC) and keeps only printable ASCII and U+00A1..U+00FF,
// where Unicode and cp1252 agree. Other runes get a fallback or '?'.
func latin1(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteByte(' ')
		case r == '\n' || (r >= 0x20 && r < 0x7f) || (r >= 0xa1 && r <= 0xff):
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
		default:
			if repl, ok := latin1Fallback[r]; ok {
				b.WriteString(repl)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

func (d *document) output(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// rgb parses #rrggbb, falling back to black.
func rgb(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
