package repository

import (
	"context"
	"database/sql"

	"github.com/inkhouse/inkhouse/internal/model"
)

type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

// Create inserts a post and returns its ID.
func (r *PostRepo) Create(ctx context.Context, p model.Post) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (author_id, title, body, published) VALUES (?,?,?,?)",
		p.AuthorID, p.Title, p.Body, p.Published)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a post by id.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	var p model.Post
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,author_id,title,body,published,created_at,updated_at FROM posts WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListByAuthor returns one page of an author's posts plus the total count.
func (r *PostRepo) ListByAuthor(ctx context.Context, authorID uint64, page, limit int) ([]model.Post, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE author_id=?", authorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,author_id,title,body,published,created_at,updated_at FROM posts WHERE author_id=? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		authorID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

// Update rewrites a post's title, body and published flag after verifying
// the caller authored it.
func (r *PostRepo) Update(ctx context.Context, p model.Post, requestingUserID uint64) error {
	var authorID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id=? LIMIT 1", p.ID).Scan(&authorID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if authorID != requestingUserID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE posts SET title=?, body=?, published=? WHERE id=?",
		p.Title, p.Body, p.Published, p.ID)
	return err
}
