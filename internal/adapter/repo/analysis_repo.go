package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nutrascan/internal/domain"
	"nutrascan/internal/infra"
	"nutrascan/internal/sqlinline"
)

// AnalysisRepositoryPG persists analysis results in PostgreSQL.
type AnalysisRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewAnalysisRepository(sql infra.SQLExecutor) *AnalysisRepositoryPG {
	return &AnalysisRepositoryPG{sql: sql}
}

// Insert stores one result under the given id. UserID may be empty for
// anonymous callers.
func (r *AnalysisRepositoryPG) Insert(ctx context.Context, a *domain.Analysis) error {
	payload, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshal analysis payload: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertAnalysis,
		a.ID, a.UserID, a.Result.ProductName, a.Result.Brand, a.Result.Score, payload)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetByID loads a stored analysis.
func (r *AnalysisRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAnalysisByID, id)
	var (
		analysis  domain.Analysis
		payload   []byte
		createdAt time.Time
	)
	if err := row.Scan(&analysis.ID, &analysis.UserID, &payload, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	if err := json.Unmarshal(payload, &analysis.Result); err != nil {
		return nil, fmt.Errorf("decode analysis payload: %w", err)
	}
	analysis.CreatedAt = createdAt
	return &analysis, nil
}
