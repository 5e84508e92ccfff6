package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/inkhouse/inkhouse/internal/model"
)

// AuditRepo appends security-relevant events. Writes are best-effort: the
// caller logs insert failures and moves on, so a broken audit table never
// blocks a login.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert records one audit entry, assigning it a UUID.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_log (id, event, user_id, ip_address, detail) VALUES (?,?,?,?,?)",
		e.ID, e.Event, e.UserID, e.IPAddress, e.Detail)
	return err
}

// List returns one page of entries, newest first, plus the total count.
func (r *AuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditEntry, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,event,user_id,ip_address,detail,created_at FROM audit_log ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Event, &e.UserID, &e.IPAddress, &e.Detail, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
