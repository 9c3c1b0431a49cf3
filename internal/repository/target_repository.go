package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// ErrUnsupportedTarget is returned for kinds the lookup facade does not know.
var ErrUnsupportedTarget = errors.New("unsupported target kind")

// ErrNotContent is returned when a content effect targets a non-content kind.
var ErrNotContent = errors.New("target kind carries no content")

// TargetRepository is a read-mostly facade over the externally owned content tables.
type TargetRepository struct {
	db sqlx.ExtContext
}

// NewTargetRepository constructs the repository over a DB handle or a transaction.
func NewTargetRepository(db sqlx.ExtContext) *TargetRepository {
	return &TargetRepository{db: db}
}

type targetRow struct {
	ID       string  `db:"id"`
	OwnerID  *string `db:"owner_id"`
	IsHidden bool    `db:"is_hidden"`
}

// contentTable maps content kinds to their table and owner column.
func contentTable(kind models.TargetType) (table, ownerColumn string, ok bool) {
	switch kind {
	case models.TargetPost:
		return "posts", "author_id", true
	case models.TargetComment:
		return "comments", "author_id", true
	case models.TargetMessage:
		return "messages", "sender_id", true
	default:
		return "", "", false
	}
}

// Resolve looks up a target and its responsible user. It returns sql.ErrNoRows
// when the entity does not exist (hard-deleted content included).
func (r *TargetRepository) Resolve(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	var (
		query string
		row   targetRow
	)
	switch kind {
	case models.TargetPost, models.TargetComment, models.TargetMessage:
		table, owner, _ := contentTable(kind)
		query = fmt.Sprintf(`SELECT id, %s AS owner_id, is_hidden FROM %s WHERE id = $1`, owner, table)
	case models.TargetUser:
		query = `SELECT id, id AS owner_id, FALSE AS is_hidden FROM users WHERE id = $1`
	case models.TargetCandidate:
		query = `SELECT id, user_id AS owner_id, FALSE AS is_hidden FROM candidates WHERE id = $1`
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, kind)
	}

	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("resolve %s target: %w", kind, err)
	}
	return &models.TargetDescriptor{
		Kind:    kind,
		ID:      row.ID,
		Exists:  true,
		OwnerID: row.OwnerID,
		Hidden:  row.IsHidden,
	}, nil
}

// Hide flags content as hidden from normal feeds.
func (r *TargetRepository) Hide(ctx context.Context, kind models.TargetType, id string) error {
	table, _, ok := contentTable(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotContent, kind)
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_hidden = TRUE WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("hide %s: %w", kind, err)
	}
	return requireAffected(result)
}

// Delete hard-removes content.
func (r *TargetRepository) Delete(ctx context.Context, kind models.TargetType, id string) error {
	table, _, ok := contentTable(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotContent, kind)
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
