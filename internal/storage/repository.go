package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository stores every entity in one table, keyed by (entity, id),
// with the record encoded as JSON.
type SQLiteRepository struct {
	db    *sql.DB
	clock core.Clock
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, c core.Clock) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if c == nil {
		c = core.SystemClock{}
	}
	return &SQLiteRepository{db: db, clock: c}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context, q store.Query) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM records
		WHERE owner_id = ? AND entity = ? AND (? = '' OR month = '' OR month = ?)
		ORDER BY month, created_at, id`,
		q.Owner, string(q.Entity), string(q.Month), string(q.Month))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Entity, err)
	}
	defer rows.Close()

	out := make([]core.Record, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Entity, err)
		}
		rec, err := store.Decode(q.Entity, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Entity, err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner string, entity core.Entity, id string) (core.Record, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE entity = ? AND id = ? AND owner_id = ?`,
		string(entity), id, owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", entity, id, err)
	}
	return store.Decode(entity, []byte(payload))
}

func (r *SQLiteRepository) Create(ctx context.Context, owner string, rec core.Record) (core.Record, error) {
	if err := store.PrepareCreate(rec, owner, r.clock.Now()); err != nil {
		return nil, err
	}
	payload, err := store.Encode(rec)
	if err != nil {
		return nil, err
	}

	m := rec.Base()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (entity, id, owner_id, month, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Entity()), m.ID, owner, string(rec.RecordMonth()), string(payload),
		m.CreatedAt.Format(timeLayout), m.UpdatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", rec.Entity(), err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		"entity", rec.Entity(),
		"id", m.ID,
		"month", rec.RecordMonth())
	return rec, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, owner string, rec core.Record) (core.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := rec.Base().ID
	var created string
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM records WHERE entity = ? AND id = ? AND owner_id = ?`,
		string(rec.Entity()), id, owner).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", rec.Entity(), id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", rec.Entity(), id, err)
	}
	createdAt, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if err := store.PrepareUpdate(rec, owner, createdAt, r.clock.Now()); err != nil {
		return nil, err
	}
	payload, err := store.Encode(rec)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE records SET month = ?, payload = ?, updated_at = ?
		WHERE entity = ? AND id = ? AND owner_id = ?`,
		string(rec.RecordMonth()), string(payload), rec.Base().UpdatedAt.Format(timeLayout),
		string(rec.Entity()), id, owner)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", rec.Entity(), id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner string, entity core.Entity, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE entity = ? AND id = ? AND owner_id = ?`,
		string(entity), id, owner)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	return nil
}

// ProjectionRun is the last projection computed for an owner and month.
// RowRef is where the export landed, empty when nothing was exported.
type ProjectionRun struct {
	OwnerID    string          `json:"owner_id"`
	Month      core.Month      `json:"month"`
	Recorded   decimal.Decimal `json:"recorded"`
	Projected  decimal.Decimal `json:"projected"`
	Predicted  decimal.Decimal `json:"predicted"`
	NetWorth   decimal.Decimal `json:"net_worth"`
	RowRef     string          `json:"row_ref,omitempty"`
	ComputedAt time.Time       `json:"computed_at"`
}

// SaveProjectionRun upserts the run for (owner, month).
func (r *SQLiteRepository) SaveProjectionRun(ctx context.Context, run ProjectionRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projection_runs (owner_id, month, recorded, projected, predicted, net_worth, row_ref, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, month) DO UPDATE SET
			recorded = excluded.recorded,
			projected = excluded.projected,
			predicted = excluded.predicted,
			net_worth = excluded.net_worth,
			row_ref = excluded.row_ref,
			computed_at = excluded.computed_at`,
		run.OwnerID, string(run.Month), run.Recorded.String(), run.Projected.String(),
		run.Predicted.String(), run.NetWorth.String(), run.RowRef,
		run.ComputedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save projection run: %w", err)
	}
	return nil
}

// LastProjectionRun returns the stored run for (owner, month).
func (r *SQLiteRepository) LastProjectionRun(ctx context.Context, owner string, month core.Month) (ProjectionRun, error) {
	run := ProjectionRun{OwnerID: owner, Month: month}
	var recorded, projected, predicted, netWorth, computed string
	err := r.db.QueryRowContext(ctx, `
		SELECT recorded, projected, predicted, net_worth, row_ref, computed_at FROM projection_runs
		WHERE owner_id = ? AND month = ?`, owner, string(month)).
		Scan(&recorded, &projected, &predicted, &netWorth, &run.RowRef, &computed)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("projection run %s/%s: %w", owner, month, store.ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("load projection run: %w", err)
	}
	run.Recorded = core.CoerceAmount(recorded)
	run.Projected = core.CoerceAmount(projected)
	run.Predicted = core.CoerceAmount(predicted)
	run.NetWorth = core.CoerceAmount(netWorth)
	run.ComputedAt, _ = time.Parse(timeLayout, computed)
	return run, nil
}
