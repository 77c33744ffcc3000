package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/jmoiron/sqlx"
)

// RunRepository stores batch summaries. Document contents are never persisted.
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	ListRecent(ctx context.Context, limit int) ([]models.Run, error)
}

type runRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) RunRepository {
	return &runRepository{db: db}
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runRow mirrors the runs table.
type runRow struct {
	ID         string `db:"id"`
	Strategy   string `db:"strategy"`
	TotalFiles int    `db:"total_files"`
	Succeeded  int    `db:"succeeded"`
	NoContent  int    `db:"no_content"`
	Failed     int    `db:"failed"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

func (r *runRepository) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO runs (id, strategy, total_files, succeeded, no_content, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Strategy,
		run.TotalFiles,
		run.Succeeded,
		run.NoContent,
		run.Failed,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *runRepository) ListRecent(ctx context.Context, limit int) ([]models.Run, error) {
	query := `
		SELECT id, strategy, total_files, succeeded, no_content, failed, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]models.Run, 0, len(rows))
	for _, row := range rows {
		started, err := time.Parse(timeLayout, row.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", row.ID, err)
		}
		finished, err := time.Parse(timeLayout, row.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", row.ID, err)
		}

		runs = append(runs, models.Run{
			ID:         row.ID,
			Strategy:   row.Strategy,
			TotalFiles: row.TotalFiles,
			Succeeded:  row.Succeeded,
			NoContent:  row.NoContent,
			Failed:     row.Failed,
			StartedAt:  started,
			FinishedAt: finished,
		})
	}

	return runs, nil
}
