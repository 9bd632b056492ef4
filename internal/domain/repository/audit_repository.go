package repository

import (
	"context"
	"time"
)

// AuditEntry is one recorded authentication event.
type AuditEntry struct {
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}

type AuditRepository interface {
	Insert(ctx context.Context, e AuditEntry) error
}
