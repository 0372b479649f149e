package services

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const invoiceCurrency = "Kz"

// RenderPDF writes a printable A4 invoice to w.
func (s *InvoiceService) RenderPDF(ctx context.Context, id string, w io.Writer) error {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	var orders []models.Order
	if len(invoice.OrderIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", []string(invoice.OrderIDs)).Order("order_time asc").Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to fetch invoice orders: %w", err)
		}
	}

	var restaurant models.Restaurant
	name := "Restaurant"
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", invoice.RestaurantID).Error; err == nil {
		name = restaurant.Name
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+invoice.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, name, "", 1, "L", false, 0, "")
	if restaurant.Address != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, restaurant.Address, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Invoice: "+invoice.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Session: "+invoice.SessionID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+invoice.GeneratedTime.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+string(invoice.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{90, 20, 40, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Item", "Qty", "Unit price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, o := range orders {
		label := o.OrderedItemName
		if o.IsCancelled() {
			label += " (cancelled)"
		}
		pdf.CellFormat(widths[0], 7, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", o.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, utils.FormatAmount(o.UnitPrice, invoiceCurrency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, utils.FormatAmount(o.Total, invoiceCurrency), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, utils.FormatAmount(invoice.Total, invoiceCurrency), "1", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return nil
}
