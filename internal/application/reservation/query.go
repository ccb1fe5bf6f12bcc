package reservation

import (
	"context"
	"strconv"
	"strings"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/domain/user"
)

// QueryService 预约查询用例(只读)
// 教学要点:书名和昵称每次列表只批量查询一次,避免N+1查询
type QueryService struct {
	reservations reservation.Repository
	books        book.Repository
	users        user.Repository
}

// NewQueryService 创建预约查询用例
func NewQueryService(reservations reservation.Repository, books book.Repository, users user.Repository) *QueryService {
	return &QueryService{reservations: reservations, books: books, users: users}
}

// AllReservations 列出全部预约(最新在前)
// statusFilter为空、状态名(queued、picked_up等)或状态数值
func (q *QueryService) AllReservations(ctx context.Context, statusFilter string) ([]reservation.View, error) {
	filter := reservation.ListFilter{}
	if statusFilter = strings.TrimSpace(statusFilter); statusFilter != "" {
		st, err := parseStatusFilter(statusFilter)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	return q.list(ctx, filter)
}

// UserReservations 列出某个用户的预约(最新在前)
func (q *QueryService) UserReservations(ctx context.Context, userID uint) ([]reservation.View, error) {
	return q.list(ctx, reservation.ListFilter{UserID: userID})
}

func (q *QueryService) list(ctx context.Context, filter reservation.ListFilter) ([]reservation.View, error) {
	rows, err := q.reservations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []reservation.View{}, nil
	}

	bookIDs := make([]uint, 0, len(rows))
	userIDs := make([]uint, 0, len(rows))
	seenBook := make(map[uint]struct{}, len(rows))
	seenUser := make(map[uint]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seenBook[r.BookID]; !ok {
			seenBook[r.BookID] = struct{}{}
			bookIDs = append(bookIDs, r.BookID)
		}
		if _, ok := seenUser[r.UserID]; !ok {
			seenUser[r.UserID] = struct{}{}
			userIDs = append(userIDs, r.UserID)
		}
	}

	books, err := q.books.FindByIDs(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	users, err := q.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]reservation.View, len(rows))
	for i, r := range rows {
		title := reservation.UnknownBook
		if b, ok := books[r.BookID]; ok {
			title = b.Title
		}
		nickname := reservation.UnknownUser
		if u, ok := users[r.UserID]; ok {
			nickname = u.Nickname
		}
		views[i] = reservation.View{
			ID:        r.ID,
			UserID:    r.UserID,
			Nickname:  nickname,
			BookID:    r.BookID,
			BookTitle: title,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
	}
	return views, nil
}

func parseStatusFilter(s string) (reservation.Status, error) {
	if st, ok := reservation.ParseStatus(strings.ToLower(s)); ok {
		return st, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if st := reservation.Status(n); n >= -128 && n <= 127 && st.Valid() {
			return st, nil
		}
	}
	return reservation.StatusNone, reservation.ErrInvalidStatusFilter
}
