package handler

import (
	"till-bot/internal/adapter/http/dto"
	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"
	"till-bot/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves the read-only dashboard.
type LedgerHandler struct {
	ledger        ports.LedgerService
	reports       ports.ReportService
	currency      string
	defaultFormat string
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ports.LedgerService, reports ports.ReportService, currency, defaultFormat string) *LedgerHandler {
	if defaultFormat == "" {
		defaultFormat = "csv"
	}
	return &LedgerHandler{ledger: ledger, reports: reports, currency: currency, defaultFormat: defaultFormat}
}

// Balance handles GET /api/v1/ledger/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	snap := h.ledger.Snapshot(c.Request.Context())
	response.OK(c, h.totals(snap.Totals))
}

// Report handles GET /api/v1/ledger/report.
func (h *LedgerHandler) Report(c *gin.Context) {
	snap := h.ledger.Snapshot(c.Request.Context())

	items := make([]dto.MovementResponse, 0, len(snap.Movements))
	for _, m := range snap.Movements {
		items = append(items, dto.MovementResponse{
			ID:         m.ID.String(),
			Actor:      m.Actor,
			Kind:       string(m.Kind),
			Amount:     domain.FormatAmount(m.Amount),
			Signed:     domain.FormatSigned(m.Signed()),
			RecordedAt: m.RecordedAt.Unix(),
		})
	}

	response.OK(c, dto.ReportResponse{
		Text:      h.reports.Report(snap),
		Movements: items,
		Totals:    h.totals(snap.Totals),
	})
}

// Export handles GET /api/v1/ledger/export.
func (h *LedgerHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	format := q.Format
	if format == "" {
		format = h.defaultFormat
	}

	file, err := h.reports.Export(h.ledger.Snapshot(c.Request.Context()), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func (h *LedgerHandler) totals(t domain.Totals) dto.TotalsResponse {
	return dto.TotalsResponse{
		Movements:   t.Count,
		Credits:     domain.FormatAmount(t.Credits),
		Debits:      domain.FormatAmount(t.Debits),
		Commissions: domain.FormatAmount(t.Commissions),
		Balance:     domain.FormatAmount(t.Net),
		Currency:    h.currency,
	}
}
