package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	ErrBookNotFound = apperrors.ErrBookNotFound

	ErrISBNDuplicate = apperrors.ErrISBNDuplicate

	ErrInvalidISBN = apperrors.New(apperrors.ErrCodeInvalidParams, "invalid ISBN")

	ErrInvalidTitle = apperrors.New(apperrors.ErrCodeInvalidParams, "title must be 1-200 characters")

	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "quantity must not be negative")

	// ErrInsufficientStock is returned by UpdateQuantity when the delta would
	// drive quantity below zero.
	ErrInsufficientStock = apperrors.ErrInsufficientStock
)
