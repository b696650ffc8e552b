package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
)

var monthNames = [...]string{
	"", "Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Criteria describes the filters applied to a report, as requested.
// RangeFrom/RangeTo take precedence over Day/Month/Year.
type Criteria struct {
	Status    *entity.Status
	Search    string
	RangeFrom *time.Time
	RangeTo   *time.Time
	Day       int
	Month     int
	Year      int
}

// HasRange reports whether an explicit date range was requested.
func (c Criteria) HasRange() bool {
	return c.RangeFrom != nil || c.RangeTo != nil
}

// Summary returns the human-readable filter lines printed under the title.
func (c Criteria) Summary() []string {
	lines := make([]string, 0, 3)
	if c.Status != nil {
		lines = append(lines, "Status: "+c.Status.Label())
	}

	switch {
	case c.RangeFrom != nil && c.RangeTo != nil:
		lines = append(lines, fmt.Sprintf("Período: %s até %s", brdate.Format(*c.RangeFrom), brdate.Format(*c.RangeTo)))
	case c.RangeFrom != nil:
		lines = append(lines, "Período: A partir de "+brdate.Format(*c.RangeFrom))
	case c.RangeTo != nil:
		lines = append(lines, "Período: Até "+brdate.Format(*c.RangeTo))
	case c.Day > 0 || c.Month > 0 || c.Year > 0:
		parts := make([]string, 0, 3)
		if c.Day > 0 {
			parts = append(parts, "Dia: "+strconv.Itoa(c.Day))
		}
		if c.Month >= 1 && c.Month <= 12 {
			parts = append(parts, "Mês: "+monthNames[c.Month])
		}
		if c.Year > 0 {
			parts = append(parts, "Ano: "+strconv.Itoa(c.Year))
		}
		lines = append(lines, "Período: "+strings.Join(parts, " / "))
	}

	if c.Search != "" {
		lines = append(lines, `Busca: "`+c.Search+`"`)
	}
	return lines
}

// ReportFilename is the attachment name for a report generated on day.
func ReportFilename(day time.Time) string {
	return "Relatorio-OS-" + day.Format(brdate.FileLayout) + ".pdf"
}

// RenderReport writes the multi-order report to w. orders must be non-empty
// and already sorted.
func RenderReport(w io.Writer, orders []entity.ServiceOrder, criteria Criteria, generatedAt time.Time) error {
	if len(orders) == 0 {
		return errors.New("report has no service orders")
	}

	d := newDocument("Relatório de Ordens de Serviço")
	d.pdf.AliasNbPages("")
	d.pdf.SetFooterFunc(func() {
		d.pdf.SetY(-margin)
		d.font("", 8, colorMuted)
		d.centered(fmt.Sprintf("Página %d de {nb}", d.pdf.PageNo()), 10)
	})
	d.pdf.AddPage()

	d.font("", 24, colorTitle)
	d.centered("RELATÓRIO DE ORDENS DE SERVIÇO", 28)
	d.pdf.Ln(6)

	d.font("", 12, colorMuted)
	d.centered("Relatório gerado em: "+generatedAt.Format(brdate.Layout), 16)

	d.font("", 11, colorMuted)
	for _, line := range criteria.Summary() {
		d.centered(line, 15)
	}

	if criteria.HasRange() {
		d.statsBox(len(orders))
	} else {
		d.pdf.Ln(6)
		d.font("", 12, colorMuted)
		d.centered(fmt.Sprintf("Total de OS: %d", len(orders)), 16)
		d.pdf.Ln(12)
	}

	const minBlockSpace = 120.0
	limit := d.pageHeight() - footerMargin
	for i := range orders {
		if i > 0 && d.pdf.GetY()+minBlockSpace > limit {
			d.pdf.AddPage()
		}
		d.orderBlock(&orders[i])

		if i < len(orders)-1 && d.pdf.GetY()+20 < limit {
			d.divider(0.5)
			d.pdf.Ln(10)
		}
	}

	return d.output(w)
}

func (d *document) statsBox(count int) {
	const (
		boxHeight = 60.0
		radius    = 8.0
		padding   = 20.0
	)
	d.pdf.Ln(10)
	x, y, width := margin, d.pdf.GetY(), d.contentWidth()

	fr, fg, fb := rgb(colorBoxFill)
	d.pdf.SetFillColor(fr, fg, fb)
	sr, sg, sb := rgb(colorBoxStroke)
	d.pdf.SetDrawColor(sr, sg, sb)
	d.pdf.SetLineWidth(1)
	d.pdf.RoundedRect(x, y, width, boxHeight, radius, "1234", "FD")

	d.font("B", 12, colorBoxTitle)
	d.pdf.SetXY(x+padding, y+10)
	d.pdf.CellFormat(width-2*padding, 16, d.text("ESTATÍSTICAS DO PERÍODO"), "", 0, "L", false, 0, "")

	noun := "Ordens de Serviço"
	if count == 1 {
		noun = "Ordem de Serviço"
	}
	d.font("B", 16, colorBoxValue)
	d.pdf.SetXY(x+padding, y+30)
	d.pdf.CellFormat(width-2*padding, 20, d.text(fmt.Sprintf("%d %s", count, noun)), "", 0, "C", false, 0, "")

	d.pdf.SetY(y + boxHeight + 15)
}

func (d *document) orderBlock(order *entity.ServiceOrder) {
	const (
		labelWidth = 85.0
		leftX      = margin
		leftWidth  = 170.0
		rightX     = 310.0
		rightWidth = 150.0
		size       = 9.0
		lineHeight = 12.0
		minRow     = 13.0
	)

	top := d.pdf.GetY()
	label := order.Status.Label()

	d.font("B", 14, colorText)
	d.pdf.SetXY(margin, top)
	d.pdf.CellFormat(200, 18, fmt.Sprintf("OS #%d", order.Number), "", 0, "L", false, 0, "")

	d.font("B", 10, StatusColor(order.Status))
	statusWidth := d.pdf.GetStringWidth(d.text(label))
	statusX := math.Max(420, d.pageWidth()-margin-statusWidth-5)
	d.pdf.SetXY(statusX, top+2)
	d.pdf.CellFormat(statusWidth+5, 14, d.text(label), "", 0, "L", false, 0, "")

	y := top + 24
	h := max(
		d.field("Solicitante:", order.Requester, leftX, y, labelWidth, leftWidth, size, lineHeight),
		d.field("Unidade:", order.Unit, rightX, y, labelWidth, rightWidth, size, lineHeight),
	)
	y += math.Max(minRow, h+1)

	h = max(
		d.field("Setor:", order.Department, leftX, y, labelWidth, leftWidth, size, lineHeight),
		d.field("Data Abertura:", brdate.Format(order.OpenedAt), rightX, y, labelWidth, rightWidth, size, lineHeight),
	)
	y += math.Max(minRow, h+1)

	if closed := brdate.FormatPtr(order.ClosedAt); closed != nil {
		d.field("Data Fechamento:", *closed, rightX, y, labelWidth, rightWidth, size, lineHeight)
		y += minRow
	}

	d.pdf.SetY(y + 8)
	d.font("B", size, colorText)
	d.paragraph("Problema:", lineHeight)
	d.pdf.Ln(2)
	d.font("", size, colorText)
	problem := order.ProblemDescription
	if strings.TrimSpace(problem) == "" {
		problem = "-"
	}
	d.paragraph(problem, lineHeight)

	if order.ServicePerformed != nil && *order.ServicePerformed != "" {
		d.pdf.Ln(6)
		d.font("B", size, colorText)
		d.paragraph("Serviço Realizado:", lineHeight)
		d.pdf.Ln(2)
		d.font("", size, colorText)
		d.paragraph(*order.ServicePerformed, lineHeight)
	}

	d.pdf.Ln(12)
}
