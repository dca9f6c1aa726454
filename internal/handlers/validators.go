package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sahayog/shg_management_app/internal/core/domain"
)

// RegisterCustomValidators installs the binding validators the request DTOs
// rely on. Must be called once before routes are registered.
func RegisterCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("collectionfrequency", validateCollectionFrequency)
	}
}

// validateCollectionFrequency accepts the supported collection frequencies.
func validateCollectionFrequency(fl validator.FieldLevel) bool {
	switch domain.CollectionFrequency(fl.Field().String()) {
	case domain.Weekly, domain.Fortnightly, domain.Monthly, domain.Yearly:
		return true
	default:
		return false
	}
}
