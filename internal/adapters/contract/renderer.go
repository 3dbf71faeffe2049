package contract

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// PDFRenderer produces the purchase contract artifact. The layout is fixed
// A4 portrait; content is driven entirely by the settled order's data.
type PDFRenderer struct {
	issuer string
}

var _ ports.ContractRenderer = (*PDFRenderer)(nil)

// NewPDFRenderer builds a renderer stamping contracts with the given issuer name.
func NewPDFRenderer(issuer string) *PDFRenderer {
	return &PDFRenderer{issuer: issuer}
}

func (r *PDFRenderer) Render(data domain.ContractData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Tree Purchase Contract "+data.OrderCode, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "TREE PURCHASE CONTRACT", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, r.issuer, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Order "+data.OrderCode, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	row("Customer", data.CustomerName)
	row("Email", data.CustomerEmail)
	row("Quantity", fmt.Sprintf("%d tree(s)", data.Quantity))
	row("Total amount", fmt.Sprintf("%.0f VND", data.TotalAmount))
	row("Payment method", data.PaymentMethod)
	if data.PaidAt != nil {
		row("Paid at", data.PaidAt.Format(time.RFC3339))
	}
	if data.VerifiedAt != nil {
		row("Verified at", data.VerifiedAt.Format(time.RFC3339))
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Planted tree identifiers", "", 1, "L", false, 0, "")
	pdf.SetFont("Courier", "", 11)
	for _, code := range data.TreeCodes {
		pdf.CellFormat(0, 6, code, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5,
		"This contract certifies the purchase listed above. Each identifier "+
			"corresponds to one tree planted and maintained on behalf of the customer.",
		"", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}
