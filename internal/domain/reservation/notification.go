package reservation

import (
	"context"
	"time"
)

// Topics of committed reservation changes; also the message routing keys.
const (
	TopicAssigned  = "reservation.assigned"
	TopicQueued    = "reservation.queued"
	TopicPromoted  = "reservation.promoted"
	TopicPickedUp  = "reservation.picked_up"
	TopicReturned  = "reservation.returned"
	TopicCancelled = "reservation.cancelled"
)

// Notification announces one committed status change.
type Notification struct {
	Topic         string    `json:"topic"`
	ReservationID uint      `json:"reservation_id"`
	UserID        uint      `json:"user_id"`
	BookID        uint      `json:"book_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers notifications after commit. A delivery failure never
// undoes the change it describes.
type Notifier interface {
	Notify(ctx context.Context, notes ...Notification) error
}

// Notifications lists what a successful result of op changed. The
// reservation named by the call comes first, then any promotion.
func Notifications(op Op, res *Result, at time.Time) []Notification {
	if res == nil || !res.OK() {
		return nil
	}

	var notes []Notification
	add := func(topic string, reservationID, userID, bookID uint, status Status) {
		notes = append(notes, Notification{
			Topic:         topic,
			ReservationID: reservationID,
			UserID:        userID,
			BookID:        bookID,
			Status:        status.String(),
			OccurredAt:    at,
		})
	}

	switch op {
	case OpReserve:
		topic := TopicQueued
		if res.Status == StatusAssigned {
			topic = TopicAssigned
		}
		add(topic, res.ReservationID, res.UserID, res.BookID, res.Status)
	case OpApprovePickup:
		add(TopicPickedUp, res.ReservationID, res.UserID, res.BookID, StatusPickedUp)
	case OpCancel:
		// a promoting cancel reports Returned in Status; the row is Cancelled
		add(TopicCancelled, res.ReservationID, res.UserID, res.BookID, StatusCancelled)
	case OpReturn:
		add(TopicReturned, res.ReservationID, res.UserID, res.BookID, StatusReturned)
	case OpAutoAssignNext:
		// the promotion below covers it
	}

	if p := res.Promotion; p != nil {
		add(TopicPromoted, p.ReservationID, p.UserID, p.BookID, StatusAssigned)
	}
	return notes
}

// Op names an engine operation in logs, metrics and notifications.
type Op string

const (
	OpReserve        Op = "reserve"
	OpApprovePickup  Op = "approve_pickup"
	OpCancel         Op = "cancel"
	OpReturn         Op = "return"
	OpAutoAssignNext Op = "auto_assign"
)
