package handler

import (
	"strings"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityHandler serves availability queries.
type AvailabilityHandler struct {
	service AvailabilityChecker
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(service AvailabilityChecker) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// RegisterRoutes registers the public availability route.
func (h *AvailabilityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/availability", h.CheckAvailability)
}

type availabilityParams struct {
	HotelID    string `form:"hotelId" binding:"required,uuid"`
	RoomTypeID string `form:"roomTypeId" binding:"omitempty,uuid"`
	CheckIn    string `form:"checkIn" binding:"required,isodate"`
	CheckOut   string `form:"checkOut" binding:"required,isodate"`
	Guests     int    `form:"guests" binding:"required,min=1"`
	Qty        int    `form:"qty" binding:"omitempty,min=1"`
	Currency   string `form:"currency" binding:"omitempty,len=3"`
}

// CheckAvailability handles GET /api/v1/availability. Without roomTypeId every
// active room type of the hotel is checked.
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	var p availabilityParams
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Formats were validated by binding.
	checkIn, _ := calendar.ParseDate(p.CheckIn)
	checkOut, _ := calendar.ParseDate(p.CheckOut)
	qty := p.Qty
	if qty == 0 {
		qty = 1
	}

	q := application.AvailabilityQuery{
		HotelID:  uuid.MustParse(p.HotelID),
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   p.Guests,
		RoomQty:  qty,
		Currency: strings.ToUpper(p.Currency),
	}

	if p.RoomTypeID == "" {
		results, err := h.service.CheckHotelAvailability(c.Request.Context(), q)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, results)
		return
	}

	q.RoomTypeID = uuid.MustParse(p.RoomTypeID)
	result, err := h.service.CheckAvailability(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
