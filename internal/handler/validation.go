package handler

import (
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("isodate", isoDate); err != nil {
		return fmt.Errorf("failed to register isodate validator: %w", err)
	}
	return nil
}

// isoDate accepts strict YYYY-MM-DD calendar dates.
func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(calendar.DateLayout, fl.Field().String())
	return err == nil
}
