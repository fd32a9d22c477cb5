// Package report assembles single page PDF reports: the rendered figure of
// a stats product together with its metadata and statistical summary.
package report

import (
	"bytes"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	marginMM      = 12.0
	labelWidthMM  = 45.0
	figureWidthMM = 180.0
)

// Params collects the content of a report page.
type Params struct {
	Title   string
	Meta    [][2]string // label and value rows
	Figure  []byte      // rendered PNG figure
	Summary []string    // preformatted summary lines
}

// Build assembles a landscape A4 page from p and writes the PDF to w.
func Build(w io.Writer, p Params) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, p.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range p.Meta {
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(labelWidthMM, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}

	if len(p.Figure) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader("figure", opts, bytes.NewReader(p.Figure))
		if info != nil && info.Width() > 0 {
			y := pdf.GetY() + 4
			h := figureWidthMM * info.Height() / info.Width()
			pdf.ImageOptions("figure", marginMM, y, figureWidthMM, h, false, opts, 0, "")
			pdf.SetY(y + h + 4)
		}
	}

	if len(p.Summary) > 0 {
		pdf.SetFont("Courier", "", 9)
		for _, line := range p.Summary {
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}

	return pdf.Output(w)
}
