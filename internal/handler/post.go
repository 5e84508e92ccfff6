package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/middleware"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
)

// PostStore is the slice of the post repository the authoring endpoints
// need.
type PostStore interface {
	Create(ctx context.Context, p model.Post) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Post, error)
	ListByAuthor(ctx context.Context, authorID uint64, page, limit int) ([]model.Post, int, error)
	Update(ctx context.Context, p model.Post, requestingUserID uint64) error
}

// PostHandler covers the writer-facing authoring surface. Rendering,
// comments and public feeds live elsewhere; this service only guards who
// may author what.
type PostHandler struct {
	Posts PostStore
}

func NewPostHandler(p PostStore) *PostHandler { return &PostHandler{Posts: p} }

type postReq struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type postPart struct {
	ID        uint64    `json:"id"`
	AuthorID  uint64    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPostPart(p model.Post) postPart {
	return postPart{ID: p.ID, AuthorID: p.AuthorID, Title: p.Title, Body: p.Body,
		Published: p.Published, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

// Create adds a post authored by the caller.
func (h *PostHandler) Create(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	var req postReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return Fail(c, http.StatusBadRequest, "Title is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Posts.Create(ctx, model.Post{
		AuthorID: claims.UserID, Title: req.Title, Body: req.Body, Published: req.Published,
	})
	if err != nil {
		log.Printf("post: create failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return OK(c, http.StatusCreated, echo.Map{"id": id})
}

// Get returns one of the caller's posts, drafts included. Someone else's
// post answers like a missing one.
func (h *PostHandler) Get(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid post id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Posts.GetByID(ctx, id)
	if err == repository.ErrNotFound || (err == nil && p.AuthorID != claims.UserID) {
		return Fail(c, http.StatusNotFound, "Post not found")
	}
	if err != nil {
		log.Printf("post: get %d failed: %v", id, err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return OK(c, http.StatusOK, echo.Map{"post": toPostPart(p)})
}

// ListMine pages through the caller's own posts.
func (h *PostHandler) ListMine(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	page, limit := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, total, err := h.Posts.ListByAuthor(ctx, claims.UserID, page, limit)
	if err != nil {
		log.Printf("post: list failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	parts := make([]postPart, 0, len(posts))
	for _, p := range posts {
		parts = append(parts, toPostPart(p))
	}
	return Paginated(c, http.StatusOK, echo.Map{"posts": parts}, NewPagination(page, limit, total))
}

// Update rewrites one of the caller's posts. Someone else's post answers
// like a missing one.
func (h *PostHandler) Update(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid post id")
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return Fail(c, http.StatusBadRequest, "Title is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Posts.Update(ctx, model.Post{
		ID: id, Title: req.Title, Body: req.Body, Published: req.Published,
	}, claims.UserID)
	if err != nil {
		switch err {
		case repository.ErrNotFound, repository.ErrForbidden:
			return Fail(c, http.StatusNotFound, "Post not found")
		}
		log.Printf("post: update %d failed: %v", id, err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return OKMessage(c, http.StatusOK, "Post updated")
}
