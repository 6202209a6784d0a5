package repository

import (
	"context"
	"fmt"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

// ReviewSessionRepository holds review sessions most-recent-first.
// Values returned are decoded fresh from storage and never alias stored state.
type ReviewSessionRepository struct {
	list *jsonList[model.ReviewSession]
}

func NewReviewSessionRepository(store kv.Store) *ReviewSessionRepository {
	return &ReviewSessionRepository{
		list: newJSONList(store, KeySessions, func(s model.ReviewSession) string { return s.ID }),
	}
}

func (r *ReviewSessionRepository) List(ctx context.Context) ([]model.ReviewSession, error) {
	sessions, err := r.list.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list review sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *ReviewSessionRepository) GetByID(ctx context.Context, id string) (*model.ReviewSession, error) {
	session, err := r.list.find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review session failed: %w", err)
	}
	return session, nil
}

// Save replaces the stored session with the same id, or prepends it when new.
func (r *ReviewSessionRepository) Save(ctx context.Context, session *model.ReviewSession) (bool, error) {
	created, err := r.list.upsert(ctx, session.Clone())
	if err != nil {
		return false, fmt.Errorf("save review session failed: %w", err)
	}
	return created, nil
}

func (r *ReviewSessionRepository) Update(ctx context.Context, id string, fn func(*model.ReviewSession) error) (*model.ReviewSession, error) {
	session, err := r.list.mutate(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("update review session failed: %w", err)
	}
	return session, nil
}

func (r *ReviewSessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.list.remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete review session failed: %w", err)
	}
	return ok, nil
}
