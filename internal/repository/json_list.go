package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"smartaudit/internal/kv"
)

// Persisted state keys.
const (
	KeyRules          = "sra_rules"
	KeyReferences     = "sra_references"
	KeySessions       = "sra_sessions"
	KeyDistillHistory = "sra_distill_history"
	KeyAISettings     = "sra_ai_settings"
)

// jsonList stores a whole slice as one JSON document under key.
// Every mutation is a load-modify-save under mu, so interleaved writers never drop updates.
type jsonList[T any] struct {
	mu       sync.Mutex
	store    kv.Store
	key      string
	idOf     func(T) string
	defaults func() []T
}

func newJSONList[T any](store kv.Store, key string, idOf func(T) string) *jsonList[T] {
	return &jsonList[T]{store: store, key: key, idOf: idOf}
}

func (l *jsonList[T]) load(ctx context.Context) ([]T, error) {
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, kv.ErrNotFound) {
		if l.defaults != nil {
			return l.defaults(), nil
		}
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s failed: %w", l.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l *jsonList[T]) save(ctx context.Context, items []T) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s failed: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, payload); err != nil {
		return fmt.Errorf("save %s failed: %w", l.key, err)
	}
	return nil
}

func (l *jsonList[T]) all(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *jsonList[T]) find(ctx context.Context, id string) (*T, error) {
	items, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if l.idOf(items[i]) == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (l *jsonList[T]) replaceAll(ctx context.Context, items []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, items)
}

func (l *jsonList[T]) insert(ctx context.Context, item T, front bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	items, err := l.load(ctx)
	if err != nil {
		return err
	}
	if front {
		items = append([]T{item}, items...)
	} else {
		items = append(items, item)
	}
	return l.save(ctx, items)
}

// upsert replaces the item with the same id in place, or prepends it when new.
func (l *jsonList[T]) upsert(ctx context.Context, item T) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	id := l.idOf(item)
	for i := range items {
		if l.idOf(items[i]) == id {
			items[i] = item
			return false, l.save(ctx, items)
		}
	}
	items = append([]T{item}, items...)
	return true, l.save(ctx, items)
}

// mutate applies fn to the stored item and persists it. Returns nil when id is unknown.
func (l *jsonList[T]) mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if l.idOf(items[i]) != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return nil, err
		}
		if err := l.save(ctx, items); err != nil {
			return nil, err
		}
		out := items[i]
		return &out, nil
	}
	return nil, nil
}

func (l *jsonList[T]) remove(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	for i := range items {
		if l.idOf(items[i]) == id {
			items = append(items[:i], items[i+1:]...)
			return true, l.save(ctx, items)
		}
	}
	return false, nil
}
