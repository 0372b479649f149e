package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type InvoiceController struct {
	Invoices *services.InvoiceService
}

func NewInvoiceController(invoices *services.InvoiceService) *InvoiceController {
	return &InvoiceController{Invoices: invoices}
}

func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	invoice, err := ic.Invoices.GetInvoice(c.Request.Context(), c.Param("invoiceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice details", invoice)
}

// DownloadPDF renders fully before writing so a failure still gets a JSON error.
func (ic *InvoiceController) DownloadPDF(c *gin.Context) {
	id := c.Param("invoiceId")
	var buf bytes.Buffer
	if err := ic.Invoices.RenderPDF(c.Request.Context(), id, &buf); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=invoice-%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (ic *InvoiceController) GetForSession(c *gin.Context) {
	invoice, err := ic.Invoices.GetInvoiceForSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice details", invoice)
}

func (ic *InvoiceController) ListForRestaurant(c *gin.Context) {
	invoices, err := ic.Invoices.ListInvoicesForRestaurant(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of invoices", invoices)
}

func (ic *InvoiceController) MarkPaid(c *gin.Context) {
	invoice, err := ic.Invoices.MarkInvoicePaid(c.Request.Context(), c.Param("invoiceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice paid", invoice)
}

func (ic *InvoiceController) Cancel(c *gin.Context) {
	invoice, err := ic.Invoices.CancelInvoice(c.Request.Context(), c.Param("invoiceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice cancelled", invoice)
}

// GenerateForSession -> admin only, returns the existing live invoice if any
func (ic *InvoiceController) GenerateForSession(c *gin.Context) {
	invoice, err := ic.Invoices.GenerateInvoiceForSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Invoice generated", invoice)
}
