package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/repository"
)

const defaultVisualInFlightTTL = 2 * time.Minute

var (
	ErrVisualInProgress = errors.New("visual generation already in progress")
	ErrNoVisual         = errors.New("no visual to reimagine")
)

// DistillService condenses documents into summaries, outlines and visuals and
// keeps the analysis history.
type DistillService struct {
	repo      *repository.DistillSessionRepository
	assistant *Assistant
	// inFlight holds one entry per sessionID/visualKey being generated.
	inFlight *cache.Cache
	log      *zap.Logger
}

type RunDistillInput struct {
	// SessionID reruns an existing analysis in place; empty starts a new one.
	SessionID string
	Type      model.DistillType
	// Documents replace the session's documents when non-empty.
	Documents []model.ReviewDocument
	Config    *model.DistillConfig
}

type VisualResult struct {
	Key    string `json:"key"`
	Image  string `json:"image"`
	Cached bool   `json:"cached"`
}

// DistillLayout is the structured view of a result for slide and infographic modes.
type DistillLayout struct {
	Slides  []model.Slide  `json:"slides"`
	Pillars []model.Pillar `json:"pillars"`
}

func NewDistillService(repo *repository.DistillSessionRepository, assistant *Assistant, inFlightTTL time.Duration, log *zap.Logger) *DistillService {
	if inFlightTTL <= 0 {
		inFlightTTL = defaultVisualInFlightTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DistillService{
		repo:      repo,
		assistant: assistant,
		inFlight:  cache.New(inFlightTTL, 2*inFlightTTL),
		log:       log,
	}
}

func (s *DistillService) List(ctx context.Context) ([]model.DistillSession, error) {
	return s.repo.List(ctx)
}

func (s *DistillService) Get(ctx context.Context, id string) (*model.DistillSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Run distills the documents in the requested mode. A new analysis is prepended
// to the history; a rerun replaces its entry and drops cached visuals.
func (s *DistillService) Run(ctx context.Context, call ai.CallConfig, input RunDistillInput) (*model.DistillSession, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidInput
	}

	var existing *model.DistillSession
	if input.SessionID != "" {
		found, err := s.Get(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		existing = found
	}
	docs := input.Documents
	if len(docs) == 0 && existing != nil {
		docs = existing.Documents
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	var (
		result string
		err    error
	)
	if input.Type == model.DistillPoster {
		result, err = s.assistant.GenerateIllustration(ctx, call.Language, docs)
	} else {
		result, err = s.assistant.GenerateSummary(ctx, call, docs, distillPrompt(call.Language, input.Type))
	}
	if err != nil {
		s.log.Error("distill failed", zap.String("type", string(input.Type)), zap.Error(err))
		return nil, err
	}

	session := &model.DistillSession{
		ID:                model.NewID(),
		Title:             docs[0].Name,
		Documents:         model.CloneDocuments(docs),
		Result:            result,
		Type:              input.Type,
		VisualData:        map[string]string{},
		VisualAdjustments: map[string]model.ImageAdjustments{},
		Timestamp:         model.NowMillis(),
		Config:            input.Config,
	}
	if session.Title == "" {
		session.Title = model.UntitledAnalysis
	}
	if existing != nil {
		session.ID = existing.ID
		session.Title = existing.Title
		if session.Config == nil {
			session.Config = existing.Config
		}
	}
	if _, err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DistillService) Rename(ctx context.Context, id, title string) (*model.DistillSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	return s.update(ctx, id, func(session *model.DistillSession) error {
		session.Title = title
		return nil
	})
}

func (s *DistillService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Layout parses slide and pillar markers out of the stored result.
func (s *DistillService) Layout(ctx context.Context, id string) (*DistillLayout, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	layout := &DistillLayout{Slides: []model.Slide{}, Pillars: []model.Pillar{}}
	switch session.Type {
	case model.DistillPPT:
		layout.Slides = model.ParseSlides(session.Result)
	case model.DistillInfographic:
		layout.Pillars = model.ParsePillars(session.Result)
	}
	return layout, nil
}

// GenerateVisual returns the image for a session's mode, or for one slide of a
// deck. A cached image is returned without calling the model, and a key that is
// already being generated is refused.
func (s *DistillService) GenerateVisual(ctx context.Context, lang ai.Language, id string, slide int) (*VisualResult, error) {
	if slide < 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := model.VisualKey(session.Type, slide)
	if cached := session.VisualData[key]; cached != "" {
		return &VisualResult{Key: key, Image: cached, Cached: true}, nil
	}
	if session.Type == model.DistillPoster {
		return &VisualResult{Key: key, Image: session.Result, Cached: true}, nil
	}

	release, err := s.acquire(id, key)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another request may have stored the image between the first read and acquire.
	session, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached := session.VisualData[key]; cached != "" {
		return &VisualResult{Key: key, Image: cached, Cached: true}, nil
	}

	content := session.Result
	if session.Type == model.DistillPPT {
		if chunks := model.SlideChunks(session.Result); slide < len(chunks) {
			content = chunks[slide]
		}
	}
	themeName := ""
	if session.Config != nil {
		themeName = session.Config.ThemeName
	}

	image, err := s.assistant.GenerateCreativeVisual(ctx, lang, content, session.Type, themeName)
	if err != nil {
		s.log.Error("visual generation failed", zap.String("session", id), zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if image == "" {
		s.log.Warn("model returned no image", zap.String("session", id), zap.String("key", key))
		return &VisualResult{Key: key}, nil
	}
	if err := s.storeVisual(ctx, id, key, image); err != nil {
		return nil, err
	}
	return &VisualResult{Key: key, Image: image}, nil
}

// Reimagine edits the current visual of key following instruction and stores the new image.
func (s *DistillService) Reimagine(ctx context.Context, id string, slide int, instruction string) (*VisualResult, error) {
	if slide < 0 || strings.TrimSpace(instruction) == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := model.VisualKey(session.Type, slide)
	current := session.VisualData[key]
	if current == "" && session.Type == model.DistillPoster {
		current = session.Result
	}
	if current == "" {
		return nil, ErrNoVisual
	}

	release, err := s.acquire(id, key)
	if err != nil {
		return nil, err
	}
	defer release()

	image, err := s.assistant.ReimagineVisual(ctx, current, instruction)
	if err != nil {
		s.log.Error("reimagine failed", zap.String("session", id), zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if image == "" {
		return &VisualResult{Key: key}, nil
	}
	if err := s.storeVisual(ctx, id, key, image); err != nil {
		return nil, err
	}
	return &VisualResult{Key: key, Image: image}, nil
}

// SetAdjustments merges patch into the adjustments stored for the visual at slide.
func (s *DistillService) SetAdjustments(ctx context.Context, id string, slide int, patch model.AdjustmentsPatch) (model.ImageAdjustments, error) {
	if slide < 0 {
		return model.ImageAdjustments{}, ErrInvalidInput
	}
	var merged model.ImageAdjustments
	_, err := s.update(ctx, id, func(session *model.DistillSession) error {
		key := model.VisualKey(session.Type, slide)
		merged = session.Adjustments(key).Merge(patch)
		if session.VisualAdjustments == nil {
			session.VisualAdjustments = map[string]model.ImageAdjustments{}
		}
		session.VisualAdjustments[key] = merged
		return nil
	})
	if err != nil {
		return model.ImageAdjustments{}, err
	}
	return merged, nil
}

// acquire claims the in-flight flag for id/key. cache.Add fails when the flag exists.
func (s *DistillService) acquire(id, key string) (func(), error) {
	flag := id + "/" + key
	if err := s.inFlight.Add(flag, struct{}{}, cache.DefaultExpiration); err != nil {
		return nil, ErrVisualInProgress
	}
	return func() { s.inFlight.Delete(flag) }, nil
}

func (s *DistillService) storeVisual(ctx context.Context, id, key, image string) error {
	_, err := s.update(ctx, id, func(session *model.DistillSession) error {
		if session.VisualData == nil {
			session.VisualData = map[string]string{}
		}
		session.VisualData[key] = image
		return nil
	})
	return err
}

func (s *DistillService) update(ctx context.Context, id string, fn func(*model.DistillSession) error) (*model.DistillSession, error) {
	session, err := s.repo.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
