package dto

import (
	"github.com/xiebiao/library/internal/domain/reservation"
)

const timeLayout = "2006-01-02 15:04:05"

// ReserveRequest is the body of POST /reservations.
type ReserveRequest struct {
	BookID uint `json:"book_id" binding:"required" example:"1"`
}

// ListReservationsRequest is the query of GET /admin/reservations.
// Status is empty, a status name or its numeric code.
type ListReservationsRequest struct {
	Status string `form:"status" binding:"omitempty,max=16" example:"queued"`
}

// PromotionResponse describes the queued reservation that got a copy.
type PromotionResponse struct {
	ReservationID     uint `json:"reservation_id" example:"8"`
	UserID            uint `json:"user_id" example:"3"`
	RemainingQuantity int  `json:"remaining_quantity" example:"0"`
}

// ResultResponse is the payload of every reservation command.
// Status is -1 when the command failed outright.
type ResultResponse struct {
	ReservationID uint               `json:"reservation_id,omitempty" example:"7"`
	BookID        uint               `json:"book_id,omitempty" example:"1"`
	Status        int                `json:"status" example:"1"`
	StatusName    string             `json:"status_name" example:"assigned"`
	Message       string             `json:"message" example:"reservation successful, book assigned"`
	Promotion     *PromotionResponse `json:"promotion,omitempty"`
}

func NewResultResponse(res *reservation.Result) *ResultResponse {
	out := &ResultResponse{
		ReservationID: res.ReservationID,
		BookID:        res.BookID,
		Status:        int(res.Status),
		StatusName:    res.Status.String(),
		Message:       res.Message,
	}
	if p := res.Promotion; p != nil {
		out.Promotion = &PromotionResponse{
			ReservationID:     p.ReservationID,
			UserID:            p.UserID,
			RemainingQuantity: p.RemainingQuantity,
		}
	}
	return out
}

// ReservationResponse is one row of a reservation listing.
type ReservationResponse struct {
	ID         uint   `json:"id" example:"7"`
	UserID     uint   `json:"user_id" example:"3"`
	Nickname   string `json:"nickname" example:"reader"`
	BookID     uint   `json:"book_id" example:"1"`
	BookTitle  string `json:"book_title" example:"The Go Programming Language"`
	Status     int    `json:"status" example:"0"`
	StatusName string `json:"status_name" example:"queued"`
	CreatedAt  string `json:"created_at" example:"2024-01-15 10:30:00"`
}

func NewReservationList(views []reservation.View) []ReservationResponse {
	out := make([]ReservationResponse, len(views))
	for i, v := range views {
		out[i] = ReservationResponse{
			ID:         v.ID,
			UserID:     v.UserID,
			Nickname:   v.Nickname,
			BookID:     v.BookID,
			BookTitle:  v.BookTitle,
			Status:     int(v.Status),
			StatusName: v.Status.String(),
			CreatedAt:  v.CreatedAt.Format(timeLayout),
		}
	}
	return out
}
