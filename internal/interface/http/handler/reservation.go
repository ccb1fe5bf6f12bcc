package handler

import (
	"github.com/gin-gonic/gin"

	appreservation "github.com/xiebiao/library/internal/application/reservation"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// ReservationHandler exposes the allocation engine. A rejected command is
// still a normal reply: the business code says why and data carries the
// result, with status -1 for an outright failure.
type ReservationHandler struct {
	commands *appreservation.Service
	queries  *appreservation.QueryService
}

func NewReservationHandler(commands *appreservation.Service, queries *appreservation.QueryService) *ReservationHandler {
	return &ReservationHandler{commands: commands, queries: queries}
}

// Reserve
// @Summary      Reserve a book
// @Description  Assigns a copy when one is on the shelf, otherwise joins the FIFO queue
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ReserveRequest true "book"
// @Success      200 {object} response.Response{data=dto.ResultResponse}
// @Failure      200 {object} response.Response{data=dto.ResultResponse} "40401 user not found, 40402 book not found"
// @Router       /api/v1/reservations [post]
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.commands.Reserve(c.Request.Context(), middleware.MustGetUserID(c), req.BookID)
	reply(c, res, err)
}

// Cancel
// @Summary      Cancel a reservation
// @Description  Owner cancels; a held copy goes to the head of the queue
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "reservation id"
// @Success      200 {object} response.Response{data=dto.ResultResponse}
// @Failure      200 {object} response.Response{data=dto.ResultResponse} "40104 not the owner, 40006 already closed, 40403 not found"
// @Router       /api/v1/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.commands.Cancel(c.Request.Context(), middleware.MustGetUserID(c), id)
	reply(c, res, err)
}

// Mine
// @Summary      My reservations
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Router       /api/v1/reservations/mine [get]
func (h *ReservationHandler) Mine(c *gin.Context) {
	views, err := h.queries.UserReservations(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationList(views))
}

// ApprovePickup
// @Summary      Approve pickup
// @Description  Librarian hands an assigned copy to the reader
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "reservation id"
// @Success      200 {object} response.Response{data=dto.ResultResponse}
// @Failure      200 {object} response.Response{data=dto.ResultResponse} "40002 not assigned, 40403 not found"
// @Router       /api/v1/admin/reservations/{id}/approve [post]
func (h *ReservationHandler) ApprovePickup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.commands.ApprovePickup(c.Request.Context(), id)
	reply(c, res, err)
}

// Return
// @Summary      Return a book
// @Description  Librarian records a return; the copy goes to the head of the queue
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "reservation id"
// @Success      200 {object} response.Response{data=dto.ResultResponse}
// @Failure      200 {object} response.Response{data=dto.ResultResponse} "40002 not picked up, 40006 already closed, 40403 not found"
// @Router       /api/v1/admin/reservations/{id}/return [post]
func (h *ReservationHandler) Return(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.commands.Return(c.Request.Context(), id)
	reply(c, res, err)
}

// AssignNext
// @Summary      Assign to the next in queue
// @Description  Give a shelf copy to the oldest queued reservation of the book
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "book id"
// @Success      200 {object} response.Response{data=dto.ResultResponse}
// @Failure      200 {object} response.Response{data=dto.ResultResponse} "40001 no copy, 40007 empty queue, 40402 not found"
// @Router       /api/v1/admin/books/{id}/assign-next [post]
func (h *ReservationHandler) AssignNext(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.commands.AutoAssignNext(c.Request.Context(), id)
	reply(c, res, err)
}

// List
// @Summary      All reservations
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "queued|assigned|picked_up|returned|cancelled or 0-4"
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Failure      200 {object} response.Response "40900 unknown status"
// @Router       /api/v1/admin/reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	var req dto.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	views, err := h.queries.AllReservations(c.Request.Context(), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationList(views))
}

func reply(c *gin.Context, res *reservation.Result, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	data := dto.NewResultResponse(res)
	if res.OK() {
		response.SuccessWithMessage(c, res.Message, data)
		return
	}
	response.ErrorWithData(c, outcomeCode(res), res.Message, data)
}

func outcomeCode(res *reservation.Result) int {
	switch res.Outcome {
	case reservation.OutcomeNotFound:
		switch res.Message {
		case reservation.MsgUserNotFound:
			return apperrors.ErrCodeUserNotFound
		case reservation.MsgBookNotFound:
			return apperrors.ErrCodeBookNotFound
		default:
			return apperrors.ErrCodeReservationNotFound
		}
	case reservation.OutcomePermissionDenied:
		return apperrors.ErrCodeForbidden
	case reservation.OutcomeInvalidTransition:
		return apperrors.ErrCodeInvalidReservationStatus
	case reservation.OutcomeTerminalState:
		return apperrors.ErrCodeReservationClosed
	case reservation.OutcomeInsufficientStock:
		return apperrors.ErrCodeInsufficientStock
	case reservation.OutcomeEmptyQueue:
		return apperrors.ErrCodeEmptyQueue
	default:
		return apperrors.ErrCodeBusinessError
	}
}
