package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Formflow/internal/domain"
)

const flowColumns = `id, tenant_id, title, description, nodes, settings, theme, status, version, created_at, updated_at`

// FlowRepo — репозиторий для работы с flows и flow_versions.
type FlowRepo struct {
	pool *pgxpool.Pool
}

// NewFlowRepo создаёт новый FlowRepo.
func NewFlowRepo(pool *pgxpool.Pool) *FlowRepo {
	return &FlowRepo{pool: pool}
}

// --- Flow CRUD ---

// Create создаёт новый flow (черновик).
func (r *FlowRepo) Create(ctx context.Context, flow *domain.Flow) error {
	args, err := flowArgs(flow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO flows (` + flowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// GetByID возвращает flow по ID.
func (r *FlowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`
	return scanFlow(r.pool.QueryRow(ctx, query, id))
}

// List возвращает flows тенанта, новые первыми.
func (r *FlowRepo) List(ctx context.Context, filter FlowFilter) ([]domain.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE ($1::text IS NULL OR tenant_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, query,
		nullString(filter.TenantID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []domain.Flow{}
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, *flow)
	}
	return flows, rows.Err()
}

// Update сохраняет черновик и статус flow.
func (r *FlowRepo) Update(ctx context.Context, flow *domain.Flow) error {
	nodes, settings, theme, err := marshalContent(flow.Content())
	if err != nil {
		return err
	}

	query := `
		UPDATE flows
		SET title = $2, description = $3, nodes = $4, settings = $5, theme = $6,
		    status = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		flow.ID,
		flow.Title,
		nullString(flow.Description),
		nodes,
		settings,
		theme,
		flow.Status,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет flow (каскадно удалит versions и responses).
func (r *FlowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- FlowVersion ---

// Publish копирует черновик в новую версию и помечает flow опубликованным.
// Строка flow блокируется на время транзакции, поэтому параллельные
// публикации получают последовательные номера версий.
func (r *FlowRepo) Publish(ctx context.Context, id uuid.UUID) (*domain.FlowVersion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	flow, err := scanFlow(tx.QueryRow(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if flow.Status == domain.FlowStatusArchived {
		return nil, fmt.Errorf("publish archived flow: %w", ErrInvalidState)
	}

	var next int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM flow_versions
		WHERE flow_id = $1
	`, id).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("get next version: %w", err)
	}

	content, err := json.Marshal(flow.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	version := domain.FlowVersion{FlowID: id, Version: next, Content: flow.Content()}
	err = tx.QueryRow(ctx, `
		INSERT INTO flow_versions (flow_id, version, content, published_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING published_at
	`, id, next, content).Scan(&version.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("insert flow version: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE flows SET status = $2, version = $3, updated_at = $4 WHERE id = $1
	`, id, domain.FlowStatusPublished, next, version.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("mark flow published: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return &version, nil
}

// GetVersion возвращает конкретную версию flow.
func (r *FlowRepo) GetVersion(ctx context.Context, flowID uuid.UUID, version int) (*domain.FlowVersion, error) {
	query := `
		SELECT flow_id, version, content, published_at
		FROM flow_versions
		WHERE flow_id = $1 AND version = $2
	`
	return scanVersion(r.pool.QueryRow(ctx, query, flowID, version))
}

// GetLatestVersion возвращает последнюю опубликованную версию flow.
func (r *FlowRepo) GetLatestVersion(ctx context.Context, flowID uuid.UUID) (*domain.FlowVersion, error) {
	query := `
		SELECT flow_id, version, content, published_at
		FROM flow_versions
		WHERE flow_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return scanVersion(r.pool.QueryRow(ctx, query, flowID))
}

// ListVersions возвращает все версии flow, новые первыми.
func (r *FlowRepo) ListVersions(ctx context.Context, flowID uuid.UUID) ([]domain.FlowVersion, error) {
	query := `
		SELECT flow_id, version, content, published_at
		FROM flow_versions
		WHERE flow_id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("list flow versions: %w", err)
	}
	defer rows.Close()

	versions := []domain.FlowVersion{}
	for rows.Next() {
		fv, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *fv)
	}
	return versions, rows.Err()
}

// --- Helpers ---

func flowArgs(flow *domain.Flow) ([]any, error) {
	nodes, settings, theme, err := marshalContent(flow.Content())
	if err != nil {
		return nil, err
	}
	return []any{
		flow.ID,
		flow.TenantID,
		flow.Title,
		nullString(flow.Description),
		nodes,
		settings,
		theme,
		flow.Status,
		flow.Version,
		flow.CreatedAt,
		flow.UpdatedAt,
	}, nil
}

func marshalContent(c domain.FlowContent) (nodes, settings, theme []byte, err error) {
	if c.Nodes == nil {
		c.Nodes = []domain.Node{}
	}
	if nodes, err = json.Marshal(c.Nodes); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	if settings, err = nullJSON(c.Settings); err != nil {
		return nil, nil, nil, fmt.Errorf("settings: %w", err)
	}
	if theme, err = nullJSON(c.Theme); err != nil {
		return nil, nil, nil, fmt.Errorf("theme: %w", err)
	}
	return nodes, settings, theme, nil
}

// scanFlow сканирует строку в Flow. Принимает и pgx.Row, и pgx.Rows.
func scanFlow(row pgx.Row) (*domain.Flow, error) {
	var (
		flow        domain.Flow
		description *string
		nodes       []byte
		settings    []byte
		theme       []byte
		status      string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&flow.ID,
		&flow.TenantID,
		&flow.Title,
		&description,
		&nodes,
		&settings,
		&theme,
		&status,
		&flow.Version,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan flow: %w", err)
	}

	if description != nil {
		flow.Description = *description
	}
	flow.Status = domain.ParseFlowStatus(status)
	flow.CreatedAt = createdAt.UTC()
	flow.UpdatedAt = updatedAt.UTC()

	if err := unmarshalJSON(nodes, &flow.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := unmarshalJSON(settings, &flow.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := unmarshalJSON(theme, &flow.Theme); err != nil {
		return nil, fmt.Errorf("unmarshal theme: %w", err)
	}
	return &flow, nil
}

func scanVersion(row pgx.Row) (*domain.FlowVersion, error) {
	var fv domain.FlowVersion
	var content []byte

	err := row.Scan(&fv.FlowID, &fv.Version, &content, &fv.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan flow version: %w", err)
	}

	if err := json.Unmarshal(content, &fv.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	fv.PublishedAt = fv.PublishedAt.UTC()
	return &fv, nil
}
