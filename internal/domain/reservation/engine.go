package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Engine 预约分配引擎
// 教学要点:这是整个项目最核心的领域服务
//
// 同一本书上的每次状态变化都在一个临界区内完成:
//  1. Locker.Lock(bookID) 串行化同一本书的调用方
//  2. Transactor.Transaction 包住所有读写
//  3. LockByID 重新读取图书行(SELECT ... FOR UPDATE)
//
// Locker覆盖单实例(分布式Locker覆盖所有实例),行锁兜住绕过Locker的写入。
// 不同的书之间互不竞争。
//
// 每本书的不变量:Quantity + count(Assigned, PickedUp) 恒定。
type Engine struct {
	reservations Repository
	books        book.Repository
	users        user.Repository
	tx           Transactor
	locker       Locker
	now          func() time.Time
}

// NewEngine 创建分配引擎
func NewEngine(reservations Repository, books book.Repository, users user.Repository, tx Transactor, locker Locker) *Engine {
	return &Engine{
		reservations: reservations,
		books:        books,
		users:        users,
		tx:           tx,
		locker:       locker,
		now:          time.Now,
	}
}

// WithClock 替换时间源(测试用来控制FIFO顺序)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Reserve 预约图书
// 有库存时创建Assigned并扣减库存,否则创建Queued。
// 只要图书存在,ReservationCount就加1。
func (e *Engine) Reserve(ctx context.Context, userID, bookID uint) (*Result, error) {
	if _, err := e.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return failure(OutcomeNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}

	var res *Result
	err := e.inBook(ctx, bookID, func(ctx context.Context) error {
		b, err := e.books.LockByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, book.ErrBookNotFound) {
				res = failure(OutcomeNotFound, MsgBookNotFound)
				return nil
			}
			return err
		}

		status, msg := StatusQueued, MsgReservedQueued
		if b.HasStock() {
			if err := e.books.UpdateQuantity(ctx, bookID, -1); err != nil {
				return err
			}
			status, msg = StatusAssigned, MsgReservedAssigned
		}

		r := NewReservation(userID, bookID, status, e.now())
		if err := e.reservations.Create(ctx, r); err != nil {
			return err
		}
		if err := e.books.IncrReservationCount(ctx, bookID); err != nil {
			return err
		}

		res = &Result{
			Message:       msg,
			Status:        r.Status,
			Outcome:       OutcomeSuccess,
			ReservationID: r.ID,
			BookID:        bookID,
			UserID:        userID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApprovePickup 确认取书(Assigned → PickedUp)
// 不改库存,副本在分配时已经扣减。
func (e *Engine) ApprovePickup(ctx context.Context, reservationID uint) (*Result, error) {
	return e.onReservation(ctx, reservationID, func(ctx context.Context, r *Reservation) (*Result, error) {
		if err := r.Apply(EventApprove, e.now()); err != nil {
			return rejection(OutcomeInvalidTransition, MsgNotPickable, r), nil
		}
		if err := e.reservations.UpdateStatus(ctx, r); err != nil {
			return nil, err
		}
		return &Result{
			Message:       MsgPickedUp,
			Status:        r.Status,
			Outcome:       OutcomeSuccess,
			ReservationID: r.ID,
			BookID:        r.BookID,
			UserID:        r.UserID,
		}, nil
	})
}

// Cancel 用户取消自己的预约
// 占用副本时归还库存并尝试分配给队首;
// 发生分配时返回与Return相同的结果形态(状态Returned)。
func (e *Engine) Cancel(ctx context.Context, requestingUserID, reservationID uint) (*Result, error) {
	return e.onReservation(ctx, reservationID, func(ctx context.Context, r *Reservation) (*Result, error) {
		if !r.IsOwnedBy(requestingUserID) {
			return failure(OutcomePermissionDenied, MsgNotOwner), nil
		}
		if r.Status.IsTerminal() {
			return rejection(OutcomeTerminalState, MsgAlreadyClosed, r), nil
		}

		held := r.Status.HoldsCopy()
		if err := r.Apply(EventCancel, e.now()); err != nil {
			return rejection(OutcomeInvalidTransition, MsgAlreadyClosed, r), nil
		}
		if err := e.reservations.UpdateStatus(ctx, r); err != nil {
			return nil, err
		}

		res := &Result{
			Message:       MsgCancelled,
			Status:        r.Status,
			Outcome:       OutcomeSuccess,
			ReservationID: r.ID,
			BookID:        r.BookID,
			UserID:        r.UserID,
		}
		if !held {
			return res, nil
		}

		released, promo, err := e.release(ctx, r.BookID)
		if err != nil {
			return nil, err
		}
		res.Released = released
		if promo != nil {
			res.Promotion = promo
			res.Status = StatusReturned
			res.Message = fmt.Sprintf(MsgReturnedPromoted, promo.UserID)
		}
		return res, nil
	})
}

// Return 归还图书(PickedUp → Returned),库存+1后尝试分配给队首
// 图书已不存在时只跳过库存步骤,状态变更照常提交。
func (e *Engine) Return(ctx context.Context, reservationID uint) (*Result, error) {
	return e.onReservation(ctx, reservationID, func(ctx context.Context, r *Reservation) (*Result, error) {
		if r.Status.IsTerminal() {
			return rejection(OutcomeTerminalState, MsgNotReturnable, r), nil
		}
		if err := r.Apply(EventReturn, e.now()); err != nil {
			return rejection(OutcomeInvalidTransition, MsgNotReturnable, r), nil
		}
		if err := e.reservations.UpdateStatus(ctx, r); err != nil {
			return nil, err
		}

		res := &Result{
			Message:       MsgReturned,
			Status:        r.Status,
			Outcome:       OutcomeSuccess,
			ReservationID: r.ID,
			BookID:        r.BookID,
			UserID:        r.UserID,
		}

		released, promo, err := e.release(ctx, r.BookID)
		if err != nil {
			return nil, err
		}
		res.Released = released
		if promo != nil {
			res.Promotion = promo
			res.Message = fmt.Sprintf(MsgReturnedPromoted, promo.UserID)
		}
		return res, nil
	})
}

// AutoAssignNext 把最早排队的一条预约分配为Assigned(最多一条)
func (e *Engine) AutoAssignNext(ctx context.Context, bookID uint) (*Result, error) {
	var res *Result
	err := e.inBook(ctx, bookID, func(ctx context.Context) error {
		var err error
		res, err = e.assignNext(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// =========================================
// 临界区辅助函数
// =========================================

// inBook 持有图书锁并在同一事务内执行fn
func (e *Engine) inBook(ctx context.Context, bookID uint, fn func(ctx context.Context) error) error {
	unlock, err := e.locker.Lock(ctx, bookID)
	if err != nil {
		return err
	}
	defer unlock()

	return e.tx.Transaction(ctx, fn)
}

// onReservation 找到预约所属的图书,进入该书的临界区,
// 并把锁内重新读取的预约交给fn
func (e *Engine) onReservation(ctx context.Context, reservationID uint, fn func(ctx context.Context, r *Reservation) (*Result, error)) (*Result, error) {
	// BookID is immutable, so the unlocked read is safe for picking the lock.
	r, err := e.reservations.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return failure(OutcomeNotFound, MsgNotFound), nil
		}
		return nil, err
	}

	var res *Result
	err = e.inBook(ctx, r.BookID, func(ctx context.Context) error {
		// lock the book row first so every operation takes row locks in the same order
		if _, err := e.books.LockByID(ctx, r.BookID); err != nil && !errors.Is(err, book.ErrBookNotFound) {
			return err
		}

		fresh, err := e.reservations.FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		res, err = fn(ctx, fresh)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// release 归还一本副本并尝试分配给队首
// 图书已不存在时返回released=false
func (e *Engine) release(ctx context.Context, bookID uint) (bool, *Promotion, error) {
	if err := e.books.UpdateQuantity(ctx, bookID, 1); err != nil {
		if errors.Is(err, book.ErrBookNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	res, err := e.assignNext(ctx, bookID)
	if err != nil {
		return true, nil, err
	}
	return true, res.Promotion, nil
}

// assignNext 不加锁的AutoAssignNext,调用方已持有图书锁
func (e *Engine) assignNext(ctx context.Context, bookID uint) (*Result, error) {
	b, err := e.books.LockByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound) {
			return failure(OutcomeNotFound, MsgBookNotFound), nil
		}
		return nil, err
	}
	if !b.HasStock() {
		return failure(OutcomeInsufficientStock, MsgInsufficientStock), nil
	}

	queue, err := e.reservations.ListQueuedByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return failure(OutcomeEmptyQueue, MsgEmptyQueue), nil
	}

	head := queue[0]
	if err := head.Apply(EventPromote, e.now()); err != nil {
		return nil, apperrors.Wrapf(err, "promote reservation %d", head.ID)
	}
	if err := e.reservations.UpdateStatus(ctx, head); err != nil {
		return nil, err
	}
	if err := e.books.UpdateQuantity(ctx, bookID, -1); err != nil {
		return nil, err
	}

	promo := &Promotion{
		ReservationID:     head.ID,
		UserID:            head.UserID,
		BookID:            bookID,
		RemainingQuantity: b.Quantity - 1,
	}
	return &Result{
		Message:       fmt.Sprintf(MsgPromoted, promo.UserID, promo.RemainingQuantity),
		Status:        head.Status,
		Outcome:       OutcomeSuccess,
		ReservationID: head.ID,
		BookID:        bookID,
		UserID:        head.UserID,
		Promotion:     promo,
	}, nil
}
