package repository

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository defines the interface for the append-only security event
// log. Events are inserted exactly once and never mutated or deleted here.
type EventRepository interface {
	Record(ctx context.Context, event *SecurityEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SecurityEvent, error)
}

// eventRepository implements EventRepository using PostgreSQL
type eventRepository struct {
	db DB
}

// NewEventRepository creates a new EventRepository instance
func NewEventRepository(db DB) EventRepository {
	return &eventRepository{db: db}
}

// Record appends a security event
func (r *eventRepository) Record(ctx context.Context, event *SecurityEvent) error {
	query := `
		INSERT INTO security_events (user_id, session_id, event_type, severity, description, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.db.QueryRow(ctx, query,
		event.UserID,
		event.SessionID,
		event.EventType,
		event.Severity,
		event.Description,
		event.IPAddress,
		event.UserAgent,
	).Scan(&event.ID, &event.CreatedAt)
}

// ListByUser returns the most recent events for a user, newest first
func (r *eventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, session_id, event_type, severity, description, ip_address, user_agent, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SecurityEvent
	for rows.Next() {
		var e SecurityEvent
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.SessionID,
			&e.EventType,
			&e.Severity,
			&e.Description,
			&e.IPAddress,
			&e.UserAgent,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
