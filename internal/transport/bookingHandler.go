package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"
	"github.com/ds124wfegd/WB_L3/catering/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// EstimateResponse is the live price shown while the wizard is filled in.
type EstimateResponse struct {
	Breakdown pricing.Breakdown `json:"breakdown"`
}

type OpenBookingResponse struct {
	Booking  *entity.Booking   `json:"booking"`
	Estimate pricing.Breakdown `json:"estimate"`
}

type CompleteBookingResponse struct {
	Booking     *entity.Booking     `json:"booking"`
	Transaction *entity.Transaction `json:"transaction"`
}

func (h *BookingHandler) Estimate(c *gin.Context) {
	var sel pricing.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		bindError(c, err)
		return
	}

	breakdown, err := h.bookingService.Estimate(c.Request.Context(), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, EstimateResponse{Breakdown: breakdown})
}

func (h *BookingHandler) OpenBooking(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	var req service.OpenBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, estimate, err := h.bookingService.OpenBooking(c.Request.Context(), &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, OpenBookingResponse{Booking: booking, Estimate: estimate})
}

func (h *BookingHandler) ListBookings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	filter := entity.BookingFilter{
		OwnerID: strings.TrimSpace(c.Query("owner_id")),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := entity.ParseBookingStatus(strings.TrimSpace(s))
			if err != nil {
				respondError(c, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	var ok bool
	if filter.EventFrom, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.EventTo, ok = queryDate(c, "to"); !ok {
		return
	}

	bookings, err := h.bookingService.ListBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    bookings,
		Meta:    gin.H{"limit": limit, "offset": offset, "count": len(bookings)},
	})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) RejectBooking(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.RejectBooking(c.Request.Context(), id, req.Reason, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.RescheduleBooking(c.Request.Context(), id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, txn, err := h.bookingService.CompleteBooking(c.Request.Context(), id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, CompleteBookingResponse{Booking: booking, Transaction: txn})
}

func (h *BookingHandler) AssignStaff(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.AssignStaff(c.Request.Context(), id, req.StaffID, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) UnassignStaff(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.UnassignStaff(c.Request.Context(), id, c.Param("staff_id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) AddExpense(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, item, err := h.bookingService.AddExpense(c.Request.Context(), id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"booking": booking, "expense": item})
}

func (h *BookingHandler) EditExpense(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.EditExpense(c.Request.Context(), id, c.Param("expense_id"), &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) DeleteExpense(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.DeleteExpense(c.Request.Context(), id, c.Param("expense_id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) SetBudget(c *gin.Context) {
	id, actorID, ok := target(c)
	if !ok {
		return
	}
	var req service.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.bookingService.SetBudget(c.Request.Context(), id, req.Budget, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, booking)
}

func (h *BookingHandler) GetBudget(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	health, err := h.bookingService.GetBudgetHealth(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, health)
}

func (h *BookingHandler) GetTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txn, err := h.bookingService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, txn)
}

// target reads the booking id and the acting user of a write request.
func target(c *gin.Context) (uuid.UUID, string, bool) {
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return uuid.Nil, "", false
	}
	actorID, ok := actor(c)
	return bookingID, actorID, ok
}
