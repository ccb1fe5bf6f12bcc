package reservation

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	ErrReservationNotFound = apperrors.ErrReservationNotFound

	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidReservationStatus, "reservation status does not allow this operation")

	ErrInvalidStatusFilter = apperrors.New(apperrors.ErrCodeInvalidParams, "unknown reservation status")
)
