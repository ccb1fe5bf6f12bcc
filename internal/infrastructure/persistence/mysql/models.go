package mysql

import (
	"time"

	"gorm.io/gorm"
)

// UserModel is the users table. Domain entities carry no GORM tags;
// repositories convert between the two.
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null"`
	Password  string         `gorm:"size:255;not null;comment:bcrypt hash"`
	Nickname  string         `gorm:"size:50;not null"`
	Role      string         `gorm:"size:20;not null;default:member;comment:member|admin"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string {
	return "users"
}

// BookModel is the books table. quantity is the shelf count the reservation
// engine moves by single steps.
type BookModel struct {
	ID               uint           `gorm:"primaryKey"`
	ISBN             string         `gorm:"uniqueIndex;size:20;not null"`
	Title            string         `gorm:"index:idx_search;size:200;not null"`
	Author           string         `gorm:"index:idx_search;size:100;not null"`
	Quantity         int            `gorm:"not null;default:0;comment:copies on the shelf"`
	ReservationCount int            `gorm:"not null;default:0;comment:reservations ever made"`
	CreatedAt        time.Time      `gorm:"index"`
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (BookModel) TableName() string {
	return "books"
}

// ReservationModel is the reservations table. Rows are never deleted.
// idx_queue serves the FIFO scan: book_id, status, created_at, id.
type ReservationModel struct {
	ID        uint      `gorm:"primaryKey;index:idx_queue,priority:4"`
	UserID    uint      `gorm:"index;not null"`
	BookID    uint      `gorm:"index:idx_queue,priority:1;not null"`
	Status    int8      `gorm:"index:idx_queue,priority:2;type:tinyint;not null;default:0;comment:0 queued 1 assigned 2 returned 3 cancelled 4 picked_up"`
	CreatedAt time.Time `gorm:"index:idx_queue,priority:3;not null"`
	UpdatedAt time.Time
}

func (ReservationModel) TableName() string {
	return "reservations"
}
