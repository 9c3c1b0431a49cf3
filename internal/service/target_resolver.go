package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type targetLookup interface {
	Resolve(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error)
}

// TargetResolver answers whether a reported entity exists and who is responsible for it.
type TargetResolver struct {
	lookup targetLookup
}

// NewTargetResolver constructs the resolver.
func NewTargetResolver(lookup targetLookup) *TargetResolver {
	return &TargetResolver{lookup: lookup}
}

// Resolve returns the descriptor for (kind, id) or ErrTargetNotFound.
func (r *TargetResolver) Resolve(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown target type %q", kind))
	}
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "targetId is required")
	}
	target, err := r.lookup.Resolve(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTargetNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve target")
	}
	return target, nil
}
