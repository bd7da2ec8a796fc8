package export

import (
	"bytes"
	"fmt"
	"time"

	"lifeassistant/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// GroceryPDF renders a printable checklist. When the text checklist fits in a QR
// code it is placed on the first page so the list can be scanned onto a phone.
func GroceryPDF(items []models.AggregatedIngredient, start, end models.Date, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Grocery List")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Range: %s - %s", formatDate(start), formatDate(end))))
	pdf.Ln(6)
	pdf.Cell(0, 8, "Generated on: "+generated.Format(headerTimestamp))
	pdf.Ln(12)

	if qrPNG, err := qrcode.Encode(string(GroceryText(items, start, end, generated)), qrcode.Low, 256); err == nil {
		imageOpts := gofpdf.ImageOptions{ImageType: "png"}
		pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", 160, 10, 40, 40, false, imageOpts, 0, "")
	}

	if len(items) == 0 {
		pdf.Cell(0, 8, "No items found for this period.")
	}
	for _, it := range items {
		x, y := pdf.GetX(), pdf.GetY()
		pdf.Rect(x, y+2, 4, 4, "D")
		pdf.SetX(x + 7)
		line := it.Name
		if amount := AmountLabel(it); amount != "" {
			line = amount + " " + line
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 8, tr(line))
		pdf.Ln(6)
		if attr := Attribution(it.Dishes); attr != "" {
			pdf.SetX(x + 7)
			pdf.SetFont("Arial", "I", 9)
			pdf.Cell(0, 6, tr(attr))
			pdf.Ln(7)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
