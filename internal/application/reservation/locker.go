package reservation

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/metrics"
)

// TimedLocker 记录等待图书锁耗时的Locker装饰器
type TimedLocker struct {
	next reservation.Locker
}

// NewTimedLocker 包装next
func NewTimedLocker(next reservation.Locker) *TimedLocker {
	return &TimedLocker{next: next}
}

// Lock 获取图书锁并上报等待时间
func (l *TimedLocker) Lock(ctx context.Context, bookID uint) (func(), error) {
	start := time.Now()
	unlock, err := l.next.Lock(ctx, bookID)
	metrics.ObserveLockWait(time.Since(start))
	return unlock, err
}
