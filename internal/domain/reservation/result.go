package reservation

// Outcome 引擎结果分类
// 除存储层故障外,所有失败都以Outcome返回,不返回error
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomePermissionDenied
	OutcomeInvalidTransition
	OutcomeTerminalState
	OutcomeInsufficientStock
	OutcomeEmptyQueue
)

// String 实现Stringer接口(指标标签和span属性使用)
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomePermissionDenied:
		return "permission_denied"
	case OutcomeInvalidTransition:
		return "invalid_transition"
	case OutcomeTerminalState:
		return "terminal_state"
	case OutcomeInsufficientStock:
		return "insufficient_stock"
	case OutcomeEmptyQueue:
		return "empty_queue"
	default:
		return "unknown"
	}
}

// Result messages.
const (
	MsgReservedAssigned  = "reservation successful, book assigned"
	MsgReservedQueued    = "reservation successful, added to queue"
	MsgUserNotFound      = "user not found"
	MsgBookNotFound      = "book not found"
	MsgNotFound          = "Reservation not found"
	MsgNotPickable       = "not in available for pickup state"
	MsgPickedUp          = "pickup approved"
	MsgNotOwner          = "no permission to cancel others' reservation"
	MsgAlreadyClosed     = "already completed or cancelled"
	MsgCancelled         = "cancellation successful"
	MsgNotReturnable     = "not in returnable state"
	MsgReturned          = "return successful"
	MsgReturnedPromoted  = "return successful, book automatically assigned to user %d"
	MsgInsufficientStock = "insufficient stock, unable to assign"
	MsgEmptyQueue        = "no users in queue"
	MsgPromoted          = "book assigned to user %d, remaining quantity %d"
)

// Result is what every engine operation reports.
type Result struct {
	Message string
	// Status is the reservation status after the call, or StatusNone on an
	// outright failure.
	Status  Status
	Outcome Outcome

	ReservationID uint
	BookID        uint
	UserID        uint

	// Released is true when the call put a copy back on the shelf.
	Released bool

	// Promotion is set when a queued reservation received a copy.
	Promotion *Promotion
}

// Promotion describes one Queued → Assigned move.
type Promotion struct {
	ReservationID     uint
	UserID            uint
	BookID            uint
	RemainingQuantity int
}

// OK reports whether the operation did what it was asked to.
func (r *Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

func failure(outcome Outcome, msg string) *Result {
	return &Result{Message: msg, Status: StatusNone, Outcome: outcome}
}

// rejection reports a refused transition with the current status unchanged.
func rejection(outcome Outcome, msg string, r *Reservation) *Result {
	return &Result{
		Message:       msg,
		Status:        r.Status,
		Outcome:       outcome,
		ReservationID: r.ID,
		BookID:        r.BookID,
		UserID:        r.UserID,
	}
}
