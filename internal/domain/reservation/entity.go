package reservation

import (
	"time"
)

// Reservation 预约实体(聚合根)
// 教学要点:
// 1. 一条记录代表一个用户对一本书的预约,永不物理删除
// 2. BookID、UserID、CreatedAt创建后不可变
// 3. CreatedAt是排队的FIFO键,相同时按ID排序
type Reservation struct {
	ID        uint
	UserID    uint
	BookID    uint
	Status    Status
	CreatedAt time.Time // 排队顺序键
	UpdatedAt time.Time
}

// NewReservation 创建预约(工厂方法),初始状态只能是Assigned或Queued
func NewReservation(userID, bookID uint, status Status, now time.Time) *Reservation {
	return &Reservation{
		UserID:    userID,
		BookID:    bookID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply 按事件流转状态
// 流转表中没有(Status, ev)时返回ErrInvalidTransition,实体保持不变
func (r *Reservation) Apply(ev Event, now time.Time) error {
	next, ok := r.Status.Next(ev)
	if !ok {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// IsOwnedBy 是否为该用户的预约
func (r *Reservation) IsOwnedBy(userID uint) bool {
	return r.UserID == userID
}

// View 列表展示用的预约视图(关联书名和用户昵称)
type View struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Nickname  string    `json:"nickname"`
	BookID    uint      `json:"book_id"`
	BookTitle string    `json:"book_title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// 关联数据缺失时的占位文本
const (
	UnknownBook = "Unknown Book"
	UnknownUser = "Unknown User"
)
