package reservation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/atollstay/service-reservation/internal/platform/domain"
)

const (
	maxNameLength            = 100
	maxPhoneLength           = 30
	maxCountryLength         = 2
	maxSpecialRequestsLength = 2000
)

// Guest is an immutable value object identifying the lead guest.
type Guest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Normalized trims every field and lowercases the email.
func (g Guest) Normalized() Guest {
	return Guest{
		FirstName: strings.TrimSpace(g.FirstName),
		LastName:  strings.TrimSpace(g.LastName),
		Email:     strings.ToLower(strings.TrimSpace(g.Email)),
		Phone:     strings.TrimSpace(g.Phone),
		Country:   strings.ToUpper(strings.TrimSpace(g.Country)),
	}
}

// Validate checks the guest fields against the booking form limits.
func (g Guest) Validate() error {
	if n := utf8.RuneCountInString(g.FirstName); n < 1 || n > maxNameLength {
		return domain.NewValidationError("first name must be 1-100 characters")
	}
	if n := utf8.RuneCountInString(g.LastName); n < 1 || n > maxNameLength {
		return domain.NewValidationError("last name must be 1-100 characters")
	}
	if _, err := mail.ParseAddress(g.Email); err != nil || strings.ContainsAny(g.Email, "<> ") {
		return domain.NewValidationError("a valid email is required")
	}
	if utf8.RuneCountInString(g.Phone) > maxPhoneLength {
		return domain.NewValidationError("phone must be at most 30 characters")
	}
	if utf8.RuneCountInString(g.Country) > maxCountryLength {
		return domain.NewValidationError("country must be an ISO 3166-1 alpha-2 code")
	}
	return nil
}

// FullName joins first and last name.
func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}
