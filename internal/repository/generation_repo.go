package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

func (r *GenerationRepo) Create(ctx context.Context, g *models.Generation) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	query := `INSERT INTO generations (id, provider, model, title, slide_count, speaker_notes,
		template_name, output_filename, status, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		g.ID, g.Provider, g.Model, g.Title, g.SlideCount, g.SpeakerNotes,
		g.TemplateName, g.OutputFilename, g.Status, g.ErrorMessage, g.DurationMS,
	).Scan(&g.CreatedAt)
}

// ListRecent returns the newest generations first, optionally filtered by status.
func (r *GenerationRepo) ListRecent(ctx context.Context, status string, limit, offset int) ([]*models.Generation, int, error) {
	q := buildListQuery(status, limit, offset)

	var total int
	if err := r.pool.QueryRow(ctx, q.countSQL, q.countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, q.pageSQL, q.pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var generations []*models.Generation
	for rows.Next() {
		g := &models.Generation{}
		if err := rows.Scan(
			&g.ID, &g.Provider, &g.Model, &g.Title, &g.SlideCount, &g.SpeakerNotes,
			&g.TemplateName, &g.OutputFilename, &g.Status, &g.ErrorMessage, &g.DurationMS, &g.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		generations = append(generations, g)
	}
	return generations, total, rows.Err()
}

type listQuery struct {
	countSQL  string
	countArgs []interface{}
	pageSQL   string
	pageArgs  []interface{}
}

// buildListQuery numbers LIMIT and OFFSET after the optional status filter.
func buildListQuery(status string, limit, offset int) listQuery {
	var args []interface{}
	argIdx := 1

	where := ""
	if status != "" {
		where = fmt.Sprintf("WHERE status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	q := listQuery{
		countSQL:  "SELECT COUNT(*) FROM generations " + where,
		countArgs: args,
	}
	q.pageSQL = fmt.Sprintf(`SELECT id, provider, COALESCE(model, ''), COALESCE(title, ''), slide_count, speaker_notes,
		template_name, COALESCE(output_filename, ''), status, error_message, duration_ms, created_at
		FROM generations %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	q.pageArgs = append(append([]interface{}{}, args...), limit, offset)
	return q
}
