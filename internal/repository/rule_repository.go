package repository

import (
	"context"
	"fmt"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

type RuleRepository struct {
	list *jsonList[model.Rule]
}

func NewRuleRepository(store kv.Store) *RuleRepository {
	list := newJSONList(store, KeyRules, func(r model.Rule) string { return r.ID })
	list.defaults = model.DefaultRules
	return &RuleRepository{list: list}
}

// List returns the stored rules, or the built-in rule set when none were saved yet.
func (r *RuleRepository) List(ctx context.Context) ([]model.Rule, error) {
	rules, err := r.list.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules failed: %w", err)
	}
	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*model.Rule, error) {
	rule, err := r.list.find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get rule failed: %w", err)
	}
	return rule, nil
}

func (r *RuleRepository) Create(ctx context.Context, rule *model.Rule) error {
	if err := r.list.insert(ctx, *rule, false); err != nil {
		return fmt.Errorf("create rule failed: %w", err)
	}
	return nil
}

func (r *RuleRepository) Update(ctx context.Context, id string, fn func(*model.Rule)) (*model.Rule, error) {
	rule, err := r.list.mutate(ctx, id, func(rule *model.Rule) error {
		fn(rule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update rule failed: %w", err)
	}
	return rule, nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.list.remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete rule failed: %w", err)
	}
	return ok, nil
}
