package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahio/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const appointmentColumns = `id, scout_id, institution_id, visit_date, time_slot, notes, status, created_at, updated_at`

// PostgresAppointmentRepo implements AppointmentRepository on PostgreSQL. A
// partial unique index over active rows guards the slot.
type PostgresAppointmentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAppointmentRepo(pool *pgxpool.Pool) *PostgresAppointmentRepo {
	return &PostgresAppointmentRepo{pool: pool}
}

// EnsureSchema creates the appointments table and its indexes.
func (r *PostgresAppointmentRepo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS appointments (
			id             TEXT PRIMARY KEY,
			scout_id       TEXT NOT NULL,
			institution_id TEXT NOT NULL,
			visit_date     DATE NOT NULL,
			time_slot      TEXT NOT NULL,
			notes          TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot
			ON appointments (institution_id, visit_date, time_slot)
			WHERE status <> 'cancelled'`,
		`CREATE INDEX IF NOT EXISTS appointments_scout_idx ON appointments (scout_id)`,
		`CREATE INDEX IF NOT EXISTS appointments_institution_idx ON appointments (institution_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply appointment schema: %w", err)
		}
	}
	return nil
}

// Migrate satisfies the migrate command's schema hook.
func (r *PostgresAppointmentRepo) Migrate(ctx context.Context) error {
	return r.EnsureSchema(ctx)
}

func (r *PostgresAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	now := time.Now().UTC()
	record := *appt
	record.ID = uuid.NewString()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, record.ScoutID, record.InstitutionID, record.VisitDate, record.TimeSlot,
		record.Notes, string(record.Status), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	*appt = record
	return nil
}

func (r *PostgresAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment with id %s: %w", id, err)
	}
	return appt, nil
}

func (r *PostgresAppointmentRepo) ListByScout(ctx context.Context, scoutID string) ([]models.Appointment, error) {
	return r.list(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE scout_id = $1 ORDER BY created_at`, scoutID)
}

func (r *PostgresAppointmentRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Appointment, error) {
	return r.list(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE institution_id = $1 ORDER BY created_at`, institutionID)
}

func (r *PostgresAppointmentRepo) ListActiveBySlot(ctx context.Context, slot models.SlotKey) ([]models.Appointment, error) {
	date, err := models.ParseVisitDate(slot.Date)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE institution_id = $1 AND visit_date = $2 AND time_slot = $3 AND status <> 'cancelled'
	`, slot.InstitutionID, date, slot.TimeSlot)
}

// UpdateStatus is a single conditional UPDATE; zero rows means unknown id or
// a status that moved underneath the caller.
func (r *PostgresAppointmentRepo) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns,
		id, string(from), string(to), time.Now().UTC())
	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update appointment %s: %w", id, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check appointment %s: %w", id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStaleStatus
}

func (r *PostgresAppointmentRepo) list(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appts := []models.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	var status string
	if err := row.Scan(
		&a.ID,
		&a.ScoutID,
		&a.InstitutionID,
		&a.VisitDate,
		&a.TimeSlot,
		&a.Notes,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = models.AppointmentStatus(status)
	a.VisitDate = models.DateOnly(a.VisitDate)
	return &a, nil
}
