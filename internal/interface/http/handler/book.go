package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

type BookHandler struct {
	addBookUseCase   *appbook.AddBookUseCase
	listBooksUseCase *appbook.ListBooksUseCase
	getBookUseCase   *appbook.GetBookUseCase
}

func NewBookHandler(
	addBookUseCase *appbook.AddBookUseCase,
	listBooksUseCase *appbook.ListBooksUseCase,
	getBookUseCase *appbook.GetBookUseCase,
) *BookHandler {
	return &BookHandler{
		addBookUseCase:   addBookUseCase,
		listBooksUseCase: listBooksUseCase,
		getBookUseCase:   getBookUseCase,
	}
}

// AddBook
// @Summary      Add a book
// @Description  Librarian adds a catalogue entry with its initial copies
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddBookRequest true "book"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      200 {object} response.Response "40004 ISBN exists, 40104 not an admin, 40900 bad params"
// @Router       /api/v1/admin/books [post]
func (h *BookHandler) AddBook(c *gin.Context) {
	var req dto.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.addBookUseCase.Execute(c.Request.Context(), appbook.AddBookRequest{
		ISBN:     req.ISBN,
		Title:    req.Title,
		Author:   req.Author,
		Quantity: req.Quantity,
		AddedBy:  middleware.MustGetUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toBookResponse(*item))
}

// ListBooks
// @Summary      List books
// @Description  Paged catalogue with available copies, newest first
// @Tags         books
// @Produce      json
// @Param        page      query int    false "page, from 1"
// @Param        page_size query int    false "page size, max 100"
// @Param        keyword   query string false "title or author"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.BookResponse}}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.listBooksUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.BookResponse, len(page.List))
	for i, item := range page.List {
		list[i] = *toBookResponse(item)
	}
	response.SuccessWithPage(c, list, page.Total, page.Page, page.PageSize)
}

// GetBook
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id path int true "book id"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      200 {object} response.Response "40402 not found"
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.getBookUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toBookResponse(*item))
}

func toBookResponse(item appbook.BookItem) *dto.BookResponse {
	return &dto.BookResponse{
		ID:               item.ID,
		ISBN:             item.ISBN,
		Title:            item.Title,
		Author:           item.Author,
		Quantity:         item.Quantity,
		ReservationCount: item.ReservationCount,
		CreatedAt:        item.CreatedAt,
	}
}

// pathID parses the :id segment, replying 40900 itself when it is not a
// positive integer.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid id: "+c.Param("id"))
		return 0, false
	}
	return uint(id), true
}
