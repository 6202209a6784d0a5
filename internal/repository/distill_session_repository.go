package repository

import (
	"context"
	"fmt"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

type DistillSessionRepository struct {
	list *jsonList[model.DistillSession]
}

func NewDistillSessionRepository(store kv.Store) *DistillSessionRepository {
	return &DistillSessionRepository{
		list: newJSONList(store, KeyDistillHistory, func(s model.DistillSession) string { return s.ID }),
	}
}

func (r *DistillSessionRepository) List(ctx context.Context) ([]model.DistillSession, error) {
	sessions, err := r.list.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list distill sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *DistillSessionRepository) GetByID(ctx context.Context, id string) (*model.DistillSession, error) {
	session, err := r.list.find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get distill session failed: %w", err)
	}
	return session, nil
}

func (r *DistillSessionRepository) Save(ctx context.Context, session *model.DistillSession) (bool, error) {
	created, err := r.list.upsert(ctx, session.Clone())
	if err != nil {
		return false, fmt.Errorf("save distill session failed: %w", err)
	}
	return created, nil
}

func (r *DistillSessionRepository) Update(ctx context.Context, id string, fn func(*model.DistillSession) error) (*model.DistillSession, error) {
	session, err := r.list.mutate(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("update distill session failed: %w", err)
	}
	return session, nil
}

func (r *DistillSessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.list.remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete distill session failed: %w", err)
	}
	return ok, nil
}
