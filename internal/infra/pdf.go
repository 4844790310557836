package infra

// pdf.go renders 80mm invoice receipts with go-pdf/fpdf.
// Generates a narrow receipt-style page with the business header, invoice
// number and date, line table, discount and tax, bold total and payments.
//
// The output file is saved to storagePath/factura_{numero}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// GenerateFacturaPDF renders the receipt of an invoice. nombres maps line item
// ids to printable names. Returns the path of the written file.
func GenerateFacturaPDF(f *model.Factura, nombres map[uuid.UUID]string, negocio, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("factura_%s.pdf", f.Numero))

	// 80mm roll; height grows with the number of lines
	alto := 110.0 + float64(len(f.Lineas)+len(f.Pagos))*5
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(negocio), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Sede %d", f.SedeID), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr("Factura N° "+f.Numero), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, f.EmitidaAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if f.Estado == model.FacturaEstadoAnulada {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "ANULADA", "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Lines ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Concepto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range f.Lineas {
		nombre, ok := nombres[l.ItemID]
		if !ok {
			nombre = string(l.Tipo)
		}
		if r := []rune(nombre); len(r) > 24 {
			nombre = string(r[:23]) + "."
		}
		pdf.CellFormat(col1, 5, tr(nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", l.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+l.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	fila := func(label, valor string) {
		pdf.CellFormat(col1+col2, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, valor, "", 1, "R", false, 0, "")
	}
	fila("Subtotal:", "$"+f.Subtotal.StringFixed(2))
	if !f.Descuento.IsZero() {
		fila("Descuento:", "-$"+f.Descuento.StringFixed(2))
	}
	if f.AplicaImpuesto {
		fila("Impuesto:", "$"+f.Impuesto.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+f.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Payments ─────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	for _, p := range f.Pagos {
		label := "Pago"
		if p.Referencia != nil && *p.Referencia != "" {
			label += " (" + *p.Referencia + ")"
		}
		fila(tr(label+":"), "$"+p.Monto.StringFixed(2))
	}
	for _, r := range f.Redenciones {
		fila("Abono aplicado:", "$"+r.Monto.StringFixed(2))
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su visita!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
