package dto

// AddBookRequest is the body of POST /admin/books.
type AddBookRequest struct {
	ISBN     string `json:"isbn" binding:"required" example:"9787115428028"`
	Title    string `json:"title" binding:"required,max=200" example:"The Go Programming Language"`
	Author   string `json:"author" binding:"max=100" example:"Alan Donovan"`
	Quantity int    `json:"quantity" binding:"min=0" example:"3"`
}

// BookResponse is one catalogue entry with its available copies.
type BookResponse struct {
	ID               uint   `json:"id" example:"1"`
	ISBN             string `json:"isbn" example:"9787115428028"`
	Title            string `json:"title" example:"The Go Programming Language"`
	Author           string `json:"author" example:"Alan Donovan"`
	Quantity         int    `json:"quantity" example:"3"`
	ReservationCount int    `json:"reservation_count" example:"12"`
	CreatedAt        string `json:"created_at" example:"2024-01-15 10:30:00"`
}

// ListBooksRequest is the query of GET /books.
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword  string `form:"keyword" binding:"omitempty,max=100" example:"Go"`
}
