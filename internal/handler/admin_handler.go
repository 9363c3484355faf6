package handler

import (
	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/atollstay/service-reservation/internal/platform/auth"
	"github.com/atollstay/service-reservation/internal/platform/middleware"
	"github.com/atollstay/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminReservationHandler handles staff HTTP requests for reservation management.
type AdminReservationHandler struct {
	reservations ReservationManager
	audit        AuditReader
	reports      OccupancyReporter
}

// NewAdminReservationHandler creates a new AdminReservationHandler.
func NewAdminReservationHandler(reservations ReservationManager, auditReader AuditReader, reports OccupancyReporter) *AdminReservationHandler {
	return &AdminReservationHandler{reservations: reservations, audit: auditReader, reports: reports}
}

// RegisterRoutes registers admin routes. Reads are open to staff; status
// changes need the admin role.
func (h *AdminReservationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	staffRole := middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, staffRole)
	{
		admin.GET("/reservations", h.ListReservations)
		admin.GET("/reservations/:id", h.GetReservation)
		admin.GET("/reservations/:id/audit", h.ReservationAudit)
		admin.PATCH("/reservations/:id/status", middleware.RequireRole(auth.RoleAdmin), h.UpdateStatus)
		admin.GET("/stats/reservations", h.ReservationStats)
		admin.GET("/reports/occupancy", h.OccupancyReport)
	}
}

// ListReservations handles GET /api/v1/admin/reservations.
func (h *AdminReservationHandler) ListReservations(c *gin.Context) {
	page, limit := parsePagination(c)

	var filter reservation.ListFilter
	if s := c.Query("status"); s != "" {
		status, err := reservation.ParseStatus(s)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		filter.Status = status
	}
	if hotel := c.Query("hotelId"); hotel != "" {
		id, err := uuid.Parse(hotel)
		if err != nil {
			response.BadRequest(c, "invalid hotel ID")
			return
		}
		filter.HotelID = id
	}
	filter.Search = c.Query("search")

	result, err := h.reservations.ListReservations(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetReservation handles GET /api/v1/admin/reservations/:id.
func (h *AdminReservationHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	result, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

type updateStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=CONFIRMED CANCELLED REFUNDED"`
	CancelReason string `json:"cancelReason" binding:"max=500"`
}

// UpdateStatus handles PATCH /api/v1/admin/reservations/:id/status.
func (h *AdminReservationHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.reservations.UpdateStatus(c.Request.Context(), id, req.Status, req.CancelReason, audit.AdminActor(userID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReservationAudit handles GET /api/v1/admin/reservations/:id/audit.
func (h *AdminReservationHandler) ReservationAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	entries, err := h.audit.GetReservationAudit(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// ReservationStats handles GET /api/v1/admin/stats/reservations.
func (h *AdminReservationHandler) ReservationStats(c *gin.Context) {
	stats, err := h.reservations.GetReservationStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// OccupancyReport handles GET /api/v1/admin/reports/occupancy?from=&to=.
func (h *AdminReservationHandler) OccupancyReport(c *gin.Context) {
	from, err := calendar.ParseDate(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := calendar.ParseDate(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.reports.GetOccupancyReport(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}
