package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the slot ledger, patient records and the shared
// identifier counter in Postgres. The ledger and counter are only ever
// mutated inside Reserve's transaction.
type Repository struct {
	pool        PgxPool
	maxAttempts int

	// OnRetry is invoked once per transaction retry after a store
	// conflict. Used for metrics; may be nil.
	OnRetry func()
}

// NewRepository creates a repository with the given bounded retry budget
// for conflicting reservation transactions.
func NewRepository(pool PgxPool, maxAttempts int) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Repository{pool: pool, maxAttempts: maxAttempts}
}

// Reserve atomically checks slot capacity, allocates the next patient
// identifier, writes the patient record and bumps the slot ledger. All
// five steps commit together or not at all. The transaction runs at
// SERIALIZABLE isolation; conflicting commits abort with a
// serialization failure and are retried up to the configured budget.
func (r *Repository) Reserve(ctx context.Context, req Reservation, capacity int) (string, error) {
	var id string
	err := withRetry(ctx, r.maxAttempts, r.OnRetry, func(ctx context.Context) error {
		var txErr error
		id, txErr = r.reserveOnce(ctx, req, capacity)
		return txErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) reserveOnce(ctx context.Context, req Reservation, capacity int) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return "", fmt.Errorf("booking: begin reserve tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// Step 1: current occupancy; a ledger entry that does not exist yet
	// counts as zero.
	var count int
	err = tx.QueryRow(ctx, `
		SELECT count FROM slots
		WHERE department = $1 AND visit_date = $2 AND visit_time = $3
	`, req.Department, req.Date, req.Time).Scan(&count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("booking: read slot ledger: %w", err)
	}

	// Step 2: capacity gate. Abort before any write so a full slot has
	// no side effects, not even a counter bump.
	if count >= capacity {
		return "", ErrSlotFull
	}

	// Step 3: allocate the next patient identifier.
	var seq int64
	if err := tx.QueryRow(ctx, `
		UPDATE patient_counter SET count = count + 1 WHERE id = 1 RETURNING count
	`).Scan(&seq); err != nil {
		return "", fmt.Errorf("booking: bump patient counter: %w", err)
	}
	id := fmt.Sprintf("P%d", seq)

	// Step 4: immutable patient record.
	if _, err := tx.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, gender, address, email, phone, department, visit_date, visit_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, req.FirstName, req.LastName, req.Gender, req.Address, req.Email, req.Phone,
		req.Department, req.Date, req.Time, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("booking: insert patient: %w", err)
	}

	// Step 5: upsert the ledger entry, appending the new occupant.
	if _, err := tx.Exec(ctx, `
		INSERT INTO slots (department, visit_date, visit_time, capacity, count, patient_ids)
		VALUES ($1, $2, $3, $4, 1, ARRAY[$5])
		ON CONFLICT (department, visit_date, visit_time)
		DO UPDATE SET count = slots.count + 1,
			patient_ids = array_append(slots.patient_ids, $5)
	`, req.Department, req.Date, req.Time, capacity, id); err != nil {
		return "", fmt.Errorf("booking: upsert slot ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("booking: commit reserve tx: %w", err)
	}
	committed = true
	return id, nil
}

// SlotCounts returns occupancy per time point for one department/date,
// keyed by HH:MM. Times with no ledger entry are absent.
func (r *Repository) SlotCounts(ctx context.Context, department, date string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT visit_time, count FROM slots
		WHERE department = $1 AND visit_date = $2
	`, department, date)
	if err != nil {
		return nil, fmt.Errorf("booking: query slot counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, fmt.Errorf("booking: scan slot count: %w", err)
		}
		counts[t] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate slot counts: %w", err)
	}
	return counts, nil
}

// GetPatient loads one patient record by identifier.
func (r *Repository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, gender, address, email, phone, department, visit_date, visit_time, created_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Gender, &p.Address, &p.Email,
		&p.Phone, &p.Department, &p.Date, &p.Time, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("booking: load patient: %w", err)
	}
	return &p, nil
}
