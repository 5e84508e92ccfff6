package model

import "time"

// Post mirrors the `posts` table. Inkhouse treats post content as opaque
// text here; rendering and editing belong to other services.
type Post struct {
	ID        uint64
	AuthorID  uint64
	Title     string
	Body      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
