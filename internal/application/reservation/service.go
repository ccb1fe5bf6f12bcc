package reservation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

const tracerName = "library/reservation"

// Service 预约用例(命令侧)
// 教学要点:
// 1. 业务规则全部在领域层Engine里,这里只做横切关注点
// 2. 每次调用:开启span、记录指标和日志
// 3. 事务提交成功后才发布通知,发布失败只记警告,不影响请求结果
type Service struct {
	engine   *reservation.Engine
	notifier reservation.Notifier
	now      func() time.Time
}

// NewService 创建预约用例
func NewService(engine *reservation.Engine, notifier reservation.Notifier) *Service {
	return &Service{engine: engine, notifier: notifier, now: time.Now}
}

// Reserve 预约图书
func (s *Service) Reserve(ctx context.Context, userID, bookID uint) (*reservation.Result, error) {
	return s.run(ctx, reservation.OpReserve,
		[]attribute.KeyValue{attribute.Int64("user.id", int64(userID)), attribute.Int64("book.id", int64(bookID))},
		func(ctx context.Context) (*reservation.Result, error) {
			return s.engine.Reserve(ctx, userID, bookID)
		})
}

// ApprovePickup 管理员确认取书
func (s *Service) ApprovePickup(ctx context.Context, reservationID uint) (*reservation.Result, error) {
	return s.run(ctx, reservation.OpApprovePickup,
		[]attribute.KeyValue{attribute.Int64("reservation.id", int64(reservationID))},
		func(ctx context.Context) (*reservation.Result, error) {
			return s.engine.ApprovePickup(ctx, reservationID)
		})
}

// Cancel 用户取消自己的预约
func (s *Service) Cancel(ctx context.Context, requestingUserID, reservationID uint) (*reservation.Result, error) {
	return s.run(ctx, reservation.OpCancel,
		[]attribute.KeyValue{attribute.Int64("user.id", int64(requestingUserID)), attribute.Int64("reservation.id", int64(reservationID))},
		func(ctx context.Context) (*reservation.Result, error) {
			return s.engine.Cancel(ctx, requestingUserID, reservationID)
		})
}

// Return 管理员确认归还
func (s *Service) Return(ctx context.Context, reservationID uint) (*reservation.Result, error) {
	return s.run(ctx, reservation.OpReturn,
		[]attribute.KeyValue{attribute.Int64("reservation.id", int64(reservationID))},
		func(ctx context.Context) (*reservation.Result, error) {
			return s.engine.Return(ctx, reservationID)
		})
}

// AutoAssignNext 手动触发队首分配
func (s *Service) AutoAssignNext(ctx context.Context, bookID uint) (*reservation.Result, error) {
	return s.run(ctx, reservation.OpAutoAssignNext,
		[]attribute.KeyValue{attribute.Int64("book.id", int64(bookID))},
		func(ctx context.Context) (*reservation.Result, error) {
			return s.engine.AutoAssignNext(ctx, bookID)
		})
}

// run 包装一次引擎调用:追踪、指标、日志、通知
func (s *Service) run(
	ctx context.Context,
	op reservation.Op,
	attrs []attribute.KeyValue,
	call func(ctx context.Context) (*reservation.Result, error),
) (*reservation.Result, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "reservation."+string(op))
	defer span.End()
	span.SetAttributes(attrs...)

	start := time.Now()
	res, err := call(ctx)
	elapsed := time.Since(start)

	log := logger.L().With(
		zap.String("op", string(op)),
		zap.String("trace_id", tracing.ExtractTraceID(ctx)),
	)

	if err != nil {
		metrics.ObserveReservationOp(string(op), "error", elapsed)
		tracing.RecordError(span, err)
		log.Error("reservation operation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	metrics.ObserveReservationOp(string(op), res.Outcome.String(), elapsed)
	span.SetAttributes(
		attribute.String("reservation.outcome", res.Outcome.String()),
		attribute.String("reservation.status", res.Status.String()),
	)

	if !res.OK() {
		log.Debug("reservation operation rejected",
			zap.Stringer("outcome", res.Outcome),
			zap.String("message", res.Message),
			zap.Uint("reservation_id", res.ReservationID),
		)
		return res, nil
	}

	log.Info("reservation operation done",
		zap.Uint("reservation_id", res.ReservationID),
		zap.Uint("book_id", res.BookID),
		zap.Stringer("status", res.Status),
		zap.Bool("released", res.Released),
		zap.Duration("elapsed", elapsed),
	)
	if p := res.Promotion; p != nil {
		metrics.IncPromotions()
		span.SetAttributes(attribute.Int64("promotion.reservation_id", int64(p.ReservationID)))
		log.Info("queue head promoted",
			zap.Uint("reservation_id", p.ReservationID),
			zap.Uint("user_id", p.UserID),
			zap.Uint("book_id", p.BookID),
			zap.Int("remaining_quantity", p.RemainingQuantity),
		)
	}

	if notes := reservation.Notifications(op, res, s.now()); len(notes) > 0 {
		if err := s.notifier.Notify(ctx, notes...); err != nil {
			log.Warn("publish reservation notifications failed", zap.Int("count", len(notes)), zap.Error(err))
		}
	}
	return res, nil
}
