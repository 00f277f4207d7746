package handler

import "github.com/go-playground/validator/v10"

// formatValidationErrors maps validator failures to field: tag pairs for
// the error envelope's details.
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
