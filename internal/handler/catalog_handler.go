package handler

import (
	"github.com/atollstay/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves the read-only room type catalog.
type CatalogHandler struct {
	service RoomTypeLister
}

func NewCatalogHandler(service RoomTypeLister) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/hotels/:id/room-types", h.ListRoomTypes)
}

// ListRoomTypes handles GET /api/v1/hotels/:id/room-types.
func (h *CatalogHandler) ListRoomTypes(c *gin.Context) {
	hotelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hotel ID")
		return
	}

	roomTypes, err := h.service.ListHotelRoomTypes(c.Request.Context(), hotelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, roomTypes)
}
