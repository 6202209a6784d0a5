package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/pkg/textextract"
	"smartaudit/internal/ranking"
	"smartaudit/internal/repository"
)

const (
	defaultImportParallelism = 4
	referenceKeywordCount    = 5
)

var (
	ErrReferenceNotFound   = errors.New("reference not found")
	ErrAsyncImportDisabled = errors.New("asynchronous import is not enabled")
	ErrImportEnqueue       = errors.New("import enqueue failed")
)

// ImportPublisher hands import jobs to a background worker.
type ImportPublisher interface {
	PublishImport(ctx context.Context, job ImportJob) error
}

type UploadedFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// ImportJob is a queued bulk import. Provider and language are resolved to
// credentials when the job runs, not when it is queued.
type ImportJob struct {
	ID       string         `json:"id"`
	Files    []UploadedFile `json:"files"`
	Provider string         `json:"provider"`
	Language string         `json:"language"`
}

type ImportFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ImportReport lists the imported references in completion order and the files that failed.
type ImportReport struct {
	Imported []model.ReferenceDocument `json:"imported"`
	Failed   []ImportFailure           `json:"failed"`
}

type ReferenceService struct {
	repo        *repository.ReferenceRepository
	rules       *repository.RuleRepository
	settings    *SettingsService
	assistant   *Assistant
	publisher   ImportPublisher
	parallelism int
	log         *zap.Logger
}

func NewReferenceService(
	repo *repository.ReferenceRepository,
	rules *repository.RuleRepository,
	settings *SettingsService,
	assistant *Assistant,
	publisher ImportPublisher,
	parallelism int,
	log *zap.Logger,
) *ReferenceService {
	if parallelism <= 0 {
		parallelism = defaultImportParallelism
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReferenceService{
		repo:        repo,
		rules:       rules,
		settings:    settings,
		assistant:   assistant,
		publisher:   publisher,
		parallelism: parallelism,
		log:         log,
	}
}

func (s *ReferenceService) List(ctx context.Context) ([]model.ReferenceDocument, error) {
	return s.repo.List(ctx)
}

func (s *ReferenceService) Toggle(ctx context.Context, id string) (*model.ReferenceDocument, error) {
	ref, err := s.repo.Update(ctx, id, func(r *model.ReferenceDocument) { r.Active = !r.Active })
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrReferenceNotFound
	}
	return ref, nil
}

func (s *ReferenceService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReferenceNotFound
	}
	return nil
}

// Import parses, classifies and tags every file in parallel. Each finished file
// is stored right away; a failing file is reported and never stops its siblings.
func (s *ReferenceService) Import(ctx context.Context, call ai.CallConfig, files []UploadedFile) (*ImportReport, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}

	var (
		mu     sync.Mutex
		report = &ImportReport{Imported: []model.ReferenceDocument{}, Failed: []ImportFailure{}}
	)
	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)
	for _, file := range files {
		g.Go(func() error {
			ref, err := s.importOne(ctx, call, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("reference import failed", zap.String("file", file.Name), zap.Error(err))
				report.Failed = append(report.Failed, ImportFailure{File: file.Name, Error: err.Error()})
				return nil
			}
			report.Imported = append(report.Imported, *ref)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("reference import finished",
		zap.Int("imported", len(report.Imported)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

func (s *ReferenceService) importOne(ctx context.Context, call ai.CallConfig, file UploadedFile) (*model.ReferenceDocument, error) {
	f, err := textextract.Extract(file.Name, bytes.NewReader(file.Data))
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(f.Text)
	if content == "" {
		return nil, fmt.Errorf("no text could be extracted from %s", file.Name)
	}

	category, err := s.assistant.Categorize(ctx, call, content, model.ReferenceCategories)
	if err != nil {
		return nil, fmt.Errorf("categorize failed: %w", err)
	}
	tags, err := s.assistant.ExtractKeywords(ctx, call, content, referenceKeywordCount)
	if err != nil {
		return nil, fmt.Errorf("extract keywords failed: %w", err)
	}

	ref := &model.ReferenceDocument{
		ID:       model.NewID(),
		Title:    titleFromFileName(file.Name),
		Content:  content,
		Type:     model.DocumentType(f.Type),
		Category: model.ReferenceCategory(category),
		Active:   true,
		Tags:     tags,
	}
	if err := s.repo.Append(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Enqueue queues a bulk import for the background worker.
func (s *ReferenceService) Enqueue(ctx context.Context, provider, language string, files []UploadedFile) (*ImportJob, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}
	if s.publisher == nil {
		return nil, ErrAsyncImportDisabled
	}
	job := ImportJob{ID: model.NewID(), Files: files, Provider: provider, Language: language}
	if err := s.publisher.PublishImport(ctx, job); err != nil {
		s.log.Error("publish import job failed", zap.String("job", job.ID), zap.Error(err))
		return nil, ErrImportEnqueue
	}
	return &ImportJob{ID: job.ID, Provider: provider, Language: language}, nil
}

// ProcessImportJob runs a queued import with the credentials saved at run time.
func (s *ReferenceService) ProcessImportJob(ctx context.Context, job ImportJob) (*ImportReport, error) {
	call, err := s.settings.CallConfig(ctx, job.Provider, job.Language)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, call, job.Files)
}

// Query answers a free-text question from the active rules and references.
func (s *ReferenceService) Query(ctx context.Context, call ai.CallConfig, query string) (*KnowledgeAnswer, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.assistant.QueryKnowledgeBase(ctx, call, query, rules, refs)
}

// Search filters references locally with a boolean term query; no model is involved.
func (s *ReferenceService) Search(ctx context.Context, query string) ([]model.ReferenceDocument, error) {
	refs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ReferenceDocument, 0, len(refs))
	for _, r := range refs {
		text := r.Title + "\n" + r.Content + "\n" + strings.Join(r.Tags, " ")
		if ranking.MatchBooleanQuery(text, query) {
			out = append(out, r)
		}
	}
	return out, nil
}
