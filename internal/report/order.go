package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
)

// OrderFilename is the attachment name for a single order document.
func OrderFilename(number int64) string {
	return fmt.Sprintf("OS-%d.pdf", number)
}

// RenderOrder writes the single-order document to w.
func RenderOrder(w io.Writer, order *entity.ServiceOrder, generatedAt time.Time) error {
	if order == nil {
		return errors.New("nil service order")
	}

	d := newDocument(fmt.Sprintf("OS #%d", order.Number))
	d.pdf.SetFooterFunc(func() {
		d.pdf.SetY(-margin)
		d.font("", 8, colorMuted)
		d.centered(fmt.Sprintf("Documento gerado em %s às %s",
			generatedAt.Format(brdate.Layout), generatedAt.Format("15:04")), 10)
	})
	d.pdf.AddPage()

	d.font("", 24, colorTitle)
	d.centered("ORDEM DE SERVIÇO", 28)
	d.pdf.Ln(6)

	d.font("U", 18, colorText)
	d.centered(fmt.Sprintf("OS #%d", order.Number), 22)
	d.pdf.Ln(12)

	d.font("", 14, StatusColor(order.Status))
	d.centered("Status: "+order.Status.Label(), 18)
	d.pdf.Ln(18)

	d.divider(1)
	d.pdf.Ln(12)

	const (
		labelWidth  = 100.0
		leftX       = margin
		leftWidth   = 180.0
		rightX      = 340.0
		rightWidth  = 105.0
		lineHeight  = 14.0
		minRowSpace = 20.0
	)
	row := func(y, h float64) float64 { return y + math.Max(minRowSpace, h+2) }

	top := d.pdf.GetY()
	left := top
	left = row(left, d.field("Solicitante:", order.Requester, leftX, left, labelWidth, leftWidth, 10, lineHeight))
	left = row(left, d.field("Unidade:", order.Unit, leftX, left, labelWidth, leftWidth, 10, lineHeight))
	left = row(left, d.field("Setor:", order.Department, leftX, left, labelWidth, leftWidth, 10, lineHeight))

	right := top
	right = row(right, d.field("Data de Abertura:", brdate.Format(order.OpenedAt), rightX, right, labelWidth, rightWidth, 10, lineHeight))
	if closed := brdate.FormatPtr(order.ClosedAt); closed != nil {
		right = row(right, d.field("Data de Fechamento:", *closed, rightX, right, labelWidth, rightWidth, 10, lineHeight))
	}

	d.pdf.SetY(math.Max(left, right) + 10)
	d.divider(1)
	d.pdf.Ln(12)

	d.font("B", 12, colorText)
	d.paragraph("Descrição do Problema:", 16)
	d.pdf.Ln(4)
	d.font("", 11, colorText)
	d.paragraph(order.ProblemDescription, 16)
	d.pdf.Ln(12)

	if order.ServicePerformed != nil && *order.ServicePerformed != "" {
		d.divider(1)
		d.pdf.Ln(12)
		d.font("B", 12, colorText)
		d.paragraph("Serviço Realizado:", 16)
		d.pdf.Ln(4)
		d.font("", 11, colorText)
		d.paragraph(*order.ServicePerformed, 16)
	}

	return d.output(w)
}
