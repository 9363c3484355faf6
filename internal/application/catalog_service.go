package application

import (
	"context"

	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/google/uuid"
)

// RoomTypeDTO is the API response representation of a room type.
type RoomTypeDTO struct {
	ID             uuid.UUID `json:"id"`
	HotelID        uuid.UUID `json:"hotel_id"`
	Name           string    `json:"name"`
	InventoryCount int       `json:"inventory_count"`
	MaxGuests      int       `json:"max_guests"`
}

// CatalogService exposes the read-only room type catalog.
type CatalogService struct {
	roomTypes inventory.RoomTypeRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(roomTypes inventory.RoomTypeRepository) *CatalogService {
	return &CatalogService{roomTypes: roomTypes}
}

// ListHotelRoomTypes returns the hotel's active room types ordered by name.
func (s *CatalogService) ListHotelRoomTypes(ctx context.Context, hotelID uuid.UUID) ([]RoomTypeDTO, error) {
	roomTypes, err := s.roomTypes.ListActiveByHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	dtos := make([]RoomTypeDTO, len(roomTypes))
	for i, rt := range roomTypes {
		dtos[i] = RoomTypeDTO{
			ID:             rt.ID(),
			HotelID:        rt.HotelID(),
			Name:           rt.Name(),
			InventoryCount: rt.InventoryCount(),
			MaxGuests:      rt.MaxGuests(),
		}
	}
	return dtos, nil
}
