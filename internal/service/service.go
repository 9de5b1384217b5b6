// Package service holds the blog's business operations: feed assembly, the
// follow graph, post and comment mutation, groups and authentication.
package service

import (
	"yatube/internal/models"
	"yatube/internal/validation"
)

// formError converts failed field validation into a VALIDATION_ERROR.
func formError(fe validation.FieldErrors) error {
	if len(fe) == 0 {
		return nil
	}
	return models.NewFormError(map[string][]string(fe))
}

// mergeFormErrors combines field errors from a validation result with errors
// raised by later checks.
func mergeFormErrors(fe validation.FieldErrors, err error) validation.FieldErrors {
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	fe.Merge(validation.FieldErrors(models.FieldsOf(err)))
	return fe
}
