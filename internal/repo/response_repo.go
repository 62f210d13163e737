package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Formflow/internal/domain"
)

// ResponseRepo — репозиторий для работы с responses.
type ResponseRepo struct {
	pool *pgxpool.Pool
}

// NewResponseRepo создаёт новый ResponseRepo.
func NewResponseRepo(pool *pgxpool.Pool) *ResponseRepo {
	return &ResponseRepo{pool: pool}
}

// Create сохраняет ответ.
func (r *ResponseRepo) Create(ctx context.Context, resp *domain.Response) error {
	return insertResponse(ctx, r.pool, resp)
}

// CreateWithinLimit сохраняет ответ, если лимит не исчерпан.
//
// Строка flow блокируется FOR UPDATE, поэтому параллельные отправки
// проверяют лимит по очереди.
func (r *ResponseRepo) CreateWithinLimit(ctx context.Context, resp *domain.Response, limit int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM flows WHERE id = $1 FOR UPDATE`, resp.FlowID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("flow %s: %w", resp.FlowID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock flow: %w", err)
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM responses WHERE flow_id = $1 AND version > 0
	`, resp.FlowID).Scan(&n)
	if err != nil {
		return fmt.Errorf("count responses: %w", err)
	}
	if n >= limit {
		return ErrLimitReached
	}

	if err := insertResponse(ctx, tx, resp); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit response: %w", err)
	}
	return nil
}

// execer — общий интерфейс pgxpool.Pool и pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertResponse(ctx context.Context, db execer, resp *domain.Response) error {
	values := resp.Values
	if values == nil {
		values = domain.FormValues{}
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	metadataJSON, err := nullJSON(resp.Metadata)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	query := `
		INSERT INTO responses (id, flow_id, version, answers, completed, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = db.Exec(ctx, query,
		resp.ID,
		resp.FlowID,
		resp.Version,
		valuesJSON,
		resp.Completed,
		metadataJSON,
		resp.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// GetByID возвращает ответ по ID.
func (r *ResponseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Response, error) {
	query := `
		SELECT id, flow_id, version, answers, completed, metadata, created_at
		FROM responses
		WHERE id = $1
	`
	return scanResponse(r.pool.QueryRow(ctx, query, id))
}

// List возвращает ответы с фильтрацией, новые первыми.
func (r *ResponseRepo) List(ctx context.Context, filter ResponseFilter) ([]domain.Response, error) {
	query := `
		SELECT id, flow_id, version, answers, completed, metadata, created_at
		FROM responses
		WHERE ($1::uuid IS NULL OR flow_id = $1)
		  AND ($2::boolean IS NULL OR completed = $2)
		  AND (NOT $5::boolean OR version > 0)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.FlowID),
		filter.Completed,
		limit,
		filter.Offset,
		filter.Live,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := []domain.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

// Count возвращает число ответов по фильтру (Limit/Offset игнорируются).
func (r *ResponseRepo) Count(ctx context.Context, filter ResponseFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM responses
		WHERE ($1::uuid IS NULL OR flow_id = $1)
		  AND ($2::boolean IS NULL OR completed = $2)
		  AND (NOT $3::boolean OR version > 0)
	`
	var n int
	if err := r.pool.QueryRow(ctx, query, nullUUID(filter.FlowID), filter.Completed, filter.Live).Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func scanResponse(row pgx.Row) (*domain.Response, error) {
	var resp domain.Response
	var valuesJSON, metadataJSON []byte

	err := row.Scan(
		&resp.ID,
		&resp.FlowID,
		&resp.Version,
		&valuesJSON,
		&resp.Completed,
		&metadataJSON,
		&resp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan response: %w", err)
	}

	if err := unmarshalJSON(valuesJSON, &resp.Values); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	if err := unmarshalJSON(metadataJSON, &resp.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	resp.CreatedAt = resp.CreatedAt.UTC()
	return &resp, nil
}
