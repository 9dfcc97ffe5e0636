package search

import apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"

// Error kinds returned by the engine; match them with errors.Is.
var (
	ErrSchema         = apperrors.ErrSchema
	ErrUnknownField   = apperrors.ErrUnknownField
	ErrTypeMismatch   = apperrors.ErrTypeMismatch
	ErrMalformedQuery = apperrors.ErrMalformedQuery
	ErrInvalidInput   = apperrors.ErrInvalidInput
	ErrNotFound       = apperrors.ErrNotFound
	ErrTimeout        = apperrors.ErrTimeout
)
