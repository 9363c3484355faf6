package handler

import (
	"errors"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/atollstay/service-reservation/internal/platform/idempotency"
	"github.com/atollstay/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets clients retry POST /reservations safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReservationHandler handles guest-facing reservation requests.
type ReservationHandler struct {
	service     ReservationManager
	idempotency *idempotency.Store
	logger      *zap.Logger
}

// NewReservationHandler creates a new ReservationHandler. store may be nil,
// in which case Idempotency-Key is ignored.
func NewReservationHandler(service ReservationManager, store *idempotency.Store, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{service: service, idempotency: store, logger: logger}
}

// RegisterRoutes registers the public reservation routes.
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/v1/reservations", h.CreateReservation)
	r.POST("/api/v1/manage-booking", h.LookupReservation)
}

// createdReservation is the body of a successful POST /reservations.
type createdReservation struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Nights      int    `json:"nights"`
	RoomQty     int    `json:"room_qty"`
}

// CreateReservation handles POST /api/v1/reservations.
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req application.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader(IdempotencyKeyHeader)
	var fingerprint string
	if key != "" && h.idempotency != nil {
		var err error
		if fingerprint, err = idempotency.Fingerprint(req); err != nil {
			response.Error(c, err)
			return
		}
		var cached createdReservation
		found, err := h.idempotency.Begin(ctx, key, fingerprint, &cached)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			response.Error(c, domain.NewConflictError("a request with this Idempotency-Key is in progress"))
			return
		case errors.Is(err, idempotency.ErrFingerprintMismatch):
			response.UnprocessableEntity(c, "IDEMPOTENCY_KEY_REUSED",
				"this Idempotency-Key was already used for a different request")
			return
		case err != nil:
			h.logger.Warn("idempotency store unavailable, proceeding without it", zap.Error(err))
			key = ""
		case found:
			response.Created(c, cached)
			return
		}
	} else {
		key = ""
	}

	res, err := h.service.CreateReservation(ctx, req)
	if err != nil {
		if key != "" {
			if rerr := h.idempotency.Release(ctx, key); rerr != nil {
				h.logger.Warn("failed to release idempotency key", zap.Error(rerr))
			}
		}
		response.Error(c, err)
		return
	}

	body := createdReservation{
		ID:          res.ID.String(),
		Code:        res.Code,
		TotalAmount: res.TotalAmount.StringFixed(2),
		Currency:    res.Currency,
		Status:      res.Status,
		CheckIn:     res.CheckIn,
		CheckOut:    res.CheckOut,
		Nights:      res.Nights,
		RoomQty:     res.RoomQty,
	}
	if key != "" {
		if err := h.idempotency.Complete(ctx, key, fingerprint, body); err != nil {
			h.logger.Warn("failed to store idempotent result", zap.String("code", res.Code), zap.Error(err))
		}
	}
	response.Created(c, body)
}

type lookupRequest struct {
	Code  string `json:"code" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// LookupReservation handles POST /api/v1/manage-booking.
func (h *ReservationHandler) LookupReservation(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.service.LookupReservation(c.Request.Context(), req.Code, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
