package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

const uniqueViolation = "23505"

const leadColumns = `email, name, phone, status, created_at, last_transition_at,
	confirmation_sent_at, reminder1_sent_at, reminder2_sent_at, final_reminder_sent_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (email, name, phone, status, created_at, last_transition_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.DB.ExecContext(ctx, query,
		lead.Email,
		lead.Name,
		lead.Phone,
		lead.Status,
		lead.CreatedAt,
		lead.LastTransitionAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return entity.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *LeadRepository) Get(ctx context.Context, email string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE email = $1`, email)

	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByStatus lists everything when statuses is empty.
func (r *LeadRepository) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]entity.Lead, error) {
	if len(statuses) == 0 {
		return r.List(ctx)
	}

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = ANY($1) ORDER BY created_at DESC`,
		pq.Array(values),
	)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// SetStatus writes the status, the transition time and, for "sent" statuses,
// the stage marker in one statement. COALESCE keeps a marker once set.
func (r *LeadRepository) SetStatus(ctx context.Context, email string, status entity.Status, at time.Time) error {
	query := `
		UPDATE leads SET
			status = $2,
			last_transition_at = $3,
			confirmation_sent_at   = COALESCE(confirmation_sent_at,   CASE WHEN $4 = 'confirmation' THEN $3::timestamptz END),
			reminder1_sent_at      = COALESCE(reminder1_sent_at,      CASE WHEN $4 = 'reminder1'    THEN $3::timestamptz END),
			reminder2_sent_at      = COALESCE(reminder2_sent_at,      CASE WHEN $4 = 'reminder2'    THEN $3::timestamptz END),
			final_reminder_sent_at = COALESCE(final_reminder_sent_at, CASE WHEN $4 = 'final'        THEN $3::timestamptz END)
		WHERE email = $1
	`

	kind, _ := entity.KindForSentStatus(status)
	res, err := r.DB.ExecContext(ctx, query, email, status, at, string(kind))
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(s scanner) (*entity.Lead, error) {
	var (
		l                          entity.Lead
		confirm, r1, r2, finalSent sql.NullTime
	)
	err := s.Scan(
		&l.Email,
		&l.Name,
		&l.Phone,
		&l.Status,
		&l.CreatedAt,
		&l.LastTransitionAt,
		&confirm,
		&r1,
		&r2,
		&finalSent,
	)
	if err != nil {
		return nil, err
	}

	l.ConfirmationSentAt = nullTime(confirm)
	l.Reminder1SentAt = nullTime(r1)
	l.Reminder2SentAt = nullTime(r2)
	l.FinalReminderSentAt = nullTime(finalSent)
	return &l, nil
}

func collect(rows *sql.Rows) ([]entity.Lead, error) {
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
