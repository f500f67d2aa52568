package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
)

type submitReadingRequest struct {
	CustomerID     string     `json:"customer_id"`
	CurrentReading string     `json:"current_reading"`
	PastReading    *string    `json:"past_reading"`
	ReadingDate    *time.Time `json:"reading_date"`
	AmountPaid     *string    `json:"amount_paid"`
}

func (s *Server) SubmitReading(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	current, err := decimal.NewFromString(strings.TrimSpace(req.CurrentReading))
	if err != nil {
		AbortWithError(c, newValidationError("current_reading", "invalid_current_reading", "invalid current_reading"))
		return
	}

	past, err := parseOptionalDecimal(req.PastReading)
	if err != nil {
		AbortWithError(c, newValidationError("past_reading", "invalid_past_reading", "invalid past_reading"))
		return
	}

	paid, err := parseOptionalDecimal(req.AmountPaid)
	if err != nil {
		AbortWithError(c, newValidationError("amount_paid", "invalid_amount_paid", "invalid amount_paid"))
		return
	}

	record, err := s.billingSvc.SubmitReading(c.Request.Context(), caller, billingdomain.SubmitReadingRequest{
		CustomerID:     strings.TrimSpace(req.CustomerID),
		CurrentReading: current,
		PastReading:    past,
		ReadingDate:    req.ReadingDate,
		AmountPaid:     paid,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

type recordPaymentRequest struct {
	BillingRecordID string `json:"billing_record_id"`
	Amount          string `json:"amount"`
	Method          string `json:"method"`
	Reference       string `json:"reference"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	record, err := s.billingSvc.RecordPayment(c.Request.Context(), caller, billingdomain.RecordPaymentRequest{
		BillingRecordID: strings.TrimSpace(req.BillingRecordID),
		Amount:          amount,
		Method:          strings.TrimSpace(req.Method),
		Reference:       strings.TrimSpace(req.Reference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) ListBillingRecords(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query billingdomain.ListRecordsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	records, err := s.billingSvc.ListRecords(c.Request.Context(), caller, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) GetBillingRecordByID(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	record, err := s.billingSvc.GetRecord(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) ListPaymentLogs(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	logs, err := s.billingSvc.ListPayments(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) ListReadingLogs(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	logs, err := s.billingSvc.ListReadings(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) PaymentReceipt(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	pdfBytes, err := s.billingSvc.ReceiptPDF(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func parseOptionalDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
