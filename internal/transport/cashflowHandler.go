package transport

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/service"

	"github.com/gin-gonic/gin"
)

type CashflowHandler struct {
	cashflowService service.CashflowService
}

func NewCashflowHandler(cashflowService service.CashflowService) *CashflowHandler {
	return &CashflowHandler{cashflowService: cashflowService}
}

// GetLedger serves GET /cashflow/ledger?month=YYYY-MM&type=&from=&to=
func (h *CashflowHandler) GetLedger(c *gin.Context) {
	filter := entity.LedgerFilter{Type: entity.EntryType(strings.TrimSpace(c.Query("type")))}
	var ok bool
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}

	ledger, err := h.cashflowService.Ledger(c.Request.Context(), strings.TrimSpace(c.Query("month")), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ledger)
}

func (h *CashflowHandler) CreateEntry(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	var req service.CashflowEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	entry, err := h.cashflowService.CreateEntry(c.Request.Context(), &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, entry)
}

func (h *CashflowHandler) ListEntries(c *gin.Context) {
	filter := entity.CashflowFilter{
		Type:    entity.EntryType(strings.TrimSpace(c.Query("type"))),
		OwnerID: strings.TrimSpace(c.Query("owner_id")),
	}
	var ok bool
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}

	entries, err := h.cashflowService.ListEntries(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

func (h *CashflowHandler) DeleteEntry(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, ok := actor(c); !ok {
		return
	}

	if err := h.cashflowService.DeleteEntry(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MonthlyReport serves the transaction rollup, newest month first.
func (h *CashflowHandler) MonthlyReport(c *gin.Context) {
	rollups, err := h.cashflowService.MonthlyRollup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rollups)
}
