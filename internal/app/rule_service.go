package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/pkg/textextract"
	"smartaudit/internal/repository"
)

var ErrRuleNotFound = errors.New("rule not found")

type RuleService struct {
	repo      *repository.RuleRepository
	assistant *Assistant
	log       *zap.Logger
}

type CreateRuleInput struct {
	Title    string
	Content  string
	Category string
}

// UpdateRuleInput carries a partial update; nil fields are left unchanged.
type UpdateRuleInput struct {
	Title    *string
	Content  *string
	Category *string
	Active   *bool
}

type ImportRuleInput struct {
	FileName string
	Data     []byte
	Call     ai.CallConfig
}

func NewRuleService(repo *repository.RuleRepository, assistant *Assistant, log *zap.Logger) *RuleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RuleService{repo: repo, assistant: assistant, log: log}
}

func (s *RuleService) List(ctx context.Context) ([]model.Rule, error) {
	return s.repo.List(ctx)
}

func (s *RuleService) Create(ctx context.Context, input CreateRuleInput) (*model.Rule, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" || !contains(model.RuleCategories, input.Category) {
		return nil, ErrInvalidInput
	}
	rule := &model.Rule{
		ID:       model.NewID(),
		Title:    title,
		Content:  content,
		Category: model.RuleCategory(input.Category),
		Active:   true,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Update(ctx context.Context, id string, input UpdateRuleInput) (*model.Rule, error) {
	if input.Category != nil && !contains(model.RuleCategories, *input.Category) {
		return nil, ErrInvalidInput
	}
	if (input.Title != nil && strings.TrimSpace(*input.Title) == "") ||
		(input.Content != nil && strings.TrimSpace(*input.Content) == "") {
		return nil, ErrInvalidInput
	}
	rule, err := s.repo.Update(ctx, id, func(r *model.Rule) {
		if input.Title != nil {
			r.Title = strings.TrimSpace(*input.Title)
		}
		if input.Content != nil {
			r.Content = strings.TrimSpace(*input.Content)
		}
		if input.Category != nil {
			r.Category = model.RuleCategory(*input.Category)
		}
		if input.Active != nil {
			r.Active = *input.Active
		}
	})
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// Toggle flips a rule between active and inactive.
func (s *RuleService) Toggle(ctx context.Context, id string) (*model.Rule, error) {
	rule, err := s.repo.Update(ctx, id, func(r *model.Rule) { r.Active = !r.Active })
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRuleNotFound
	}
	return nil
}

// Import turns an uploaded file into an active rule titled after the file and
// classified by the model.
func (s *RuleService) Import(ctx context.Context, input ImportRuleInput) (*model.Rule, error) {
	f, err := textextract.Extract(input.FileName, bytes.NewReader(input.Data))
	if err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}
	content := strings.TrimSpace(f.Text)
	if content == "" {
		return nil, ErrInvalidInput
	}

	category, err := s.assistant.Categorize(ctx, input.Call, content, model.RuleCategories)
	if err != nil {
		return nil, err
	}
	rule := &model.Rule{
		ID:       model.NewID(),
		Title:    titleFromFileName(input.FileName),
		Content:  content,
		Category: model.RuleCategory(category),
		Active:   true,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.log.Info("rule imported", zap.String("file", input.FileName), zap.String("category", category))
	return rule, nil
}

func titleFromFileName(name string) string {
	base := filepath.Base(name)
	if title := strings.TrimSuffix(base, filepath.Ext(base)); title != "" {
		return title
	}
	return base
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
