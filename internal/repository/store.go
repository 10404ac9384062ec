// Package repository persists the relay's audit log.
package repository

import (
	"context"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// Store defines the audit log persistence operations.
type Store interface {
	CreateEvent(ctx context.Context, event *domain.Event) error
	// GetEvents returns the events of one relay call ordered by timestamp.
	// afterTs and limit of zero disable those filters; empty types matches all.
	GetEvents(ctx context.Context, requestID string, afterTs int64, types []string, limit int) ([]domain.Event, error)
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
