package repository

import (
	"context"
	"fmt"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

type ReferenceRepository struct {
	list *jsonList[model.ReferenceDocument]
}

func NewReferenceRepository(store kv.Store) *ReferenceRepository {
	return &ReferenceRepository{
		list: newJSONList(store, KeyReferences, func(r model.ReferenceDocument) string { return r.ID }),
	}
}

func (r *ReferenceRepository) List(ctx context.Context) ([]model.ReferenceDocument, error) {
	refs, err := r.list.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list references failed: %w", err)
	}
	return refs, nil
}

// Append adds ref at the end, so concurrent imports land in completion order.
func (r *ReferenceRepository) Append(ctx context.Context, ref *model.ReferenceDocument) error {
	if err := r.list.insert(ctx, *ref, false); err != nil {
		return fmt.Errorf("append reference failed: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) Update(ctx context.Context, id string, fn func(*model.ReferenceDocument)) (*model.ReferenceDocument, error) {
	ref, err := r.list.mutate(ctx, id, func(ref *model.ReferenceDocument) error {
		fn(ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update reference failed: %w", err)
	}
	return ref, nil
}

func (r *ReferenceRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.list.remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete reference failed: %w", err)
	}
	return ok, nil
}
