// Package response writes the JSON envelope shared by every endpoint and maps
// domain errors onto HTTP status codes.
package response

import (
	"errors"
	"net/http"

	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	Details   interface{} `json:"details,omitempty"`
}

// Meta carries pagination data.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with items and pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages},
	})
}

// BadRequest writes 400 with a validation message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: "VALIDATION_ERROR", Message: message},
	})
}

// UnprocessableEntity writes 422 with an error code.
func UnprocessableEntity(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Envelope{
		Error: &ErrorBody{Code: code, Message: message},
	})
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
		Error: &ErrorBody{Code: "UNAUTHORIZED", Message: message},
	})
}

// Error maps err onto a status code and error body.
func Error(c *gin.Context, err error) {
	status, body := Classify(err)
	c.AbortWithStatusJSON(status, Envelope{Error: &body})
}

// Classify returns the HTTP status and error body for err.
func Classify(err error) (int, ErrorBody) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		pricing    *domain.PricingUnavailableError
		capacity   *domain.CapacityExceededError
		conflict   *domain.ConflictError
		transition *domain.StateTransitionError
		forbidden  *domain.ForbiddenError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorBody{Code: "VALIDATION_ERROR", Message: validation.Error()}
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: notFound.Error()}
	case errors.As(err, &pricing):
		return http.StatusUnprocessableEntity, ErrorBody{
			Code:    "PRICING_UNAVAILABLE",
			Message: pricing.Error(),
			Details: gin.H{"missing_dates": pricing.MissingDates},
		}
	case errors.As(err, &capacity):
		return http.StatusConflict, ErrorBody{
			Code:    "CAPACITY_EXCEEDED",
			Message: capacity.Error(),
			Details: gin.H{"date": capacity.Date, "requested": capacity.Requested, "available": capacity.Available},
		}
	case errors.As(err, &conflict):
		code := "CONFLICT"
		if conflict.Timeout {
			code = "CONFLICT_TIMEOUT"
		}
		return http.StatusConflict, ErrorBody{
			Code:      code,
			Message:   conflict.Error(),
			Retryable: true,
			Details:   gin.H{"timeout": conflict.Timeout},
		}
	case errors.As(err, &transition):
		return http.StatusConflict, ErrorBody{
			Code:    "INVALID_STATE_TRANSITION",
			Message: transition.Error(),
			Details: gin.H{"from": transition.From, "to": transition.To},
		}
	case errors.As(err, &forbidden):
		return http.StatusForbidden, ErrorBody{Code: "FORBIDDEN", Message: forbidden.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}
