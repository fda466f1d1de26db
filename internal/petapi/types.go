package petapi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rafaeljc/petlife/internal/pet"
)

// Food quantity accepted by the feeding endpoint.
const (
	MinFood = 1
	MaxFood = 100
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateUserRequest is the body of PUT /api/users/{user}.
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}

// CreatePetRequest is the body of PUT /api/users/{user}/pets/{pet}.
// Happiness and hunger in the body are ignored: new pets start at the defaults.
// An omitted type means Dog.
type CreatePetRequest struct {
	Name string       `json:"name" validate:"required,min=2,max=50"`
	Type pet.Category `json:"type"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	// Code is machine-readable (e.g. "ERR_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details lists field-level validation failures.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail describes one invalid field.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// validationError turns validator output into an ErrorResponse.
func validationError(err error) *ErrorResponse {
	resp := &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "Request validation failed"}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		resp.Message = err.Error()
		return resp
	}
	for _, fe := range fieldErrs {
		issue := fe.Tag()
		if fe.Param() != "" {
			issue += "=" + fe.Param()
		}
		resp.Details = append(resp.Details, ErrorDetail{Field: strings.ToLower(fe.Field()), Issue: issue})
	}
	return resp
}

// parsePettingDuration accepts Go durations ("5m", "1h30m") and clock
// notation ("hh:mm:ss", hours unbounded, optional leading '-').
// The result is not checked for sign; the entity rejects non-positive values.
func parsePettingDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	neg := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q: use Go syntax (5m) or hh:mm:ss", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 || seconds >= 60 || math.IsNaN(seconds) {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if neg {
		d = -d
	}
	return d, nil
}

// parseFood accepts an integer in [MinFood, MaxFood].
func parseFood(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n < MinFood || n > MaxFood {
		return 0, fmt.Errorf("food must be an integer between %d and %d, got %q", MinFood, MaxFood, s)
	}
	return uint(n), nil
}
