package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/repository"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = errors.New("document version not found")
)

// ReviewService runs the review workflow on persisted sessions. AI results are
// written back only after the call succeeded, so a failure never clobbers saved fields.
type ReviewService struct {
	sessions   *repository.ReviewSessionRepository
	rules      *repository.RuleRepository
	references *repository.ReferenceRepository
	assistant  *Assistant
	log        *zap.Logger
}

type UpdateDocumentInput struct {
	Name    *string
	Content *string
}

func NewReviewService(
	sessions *repository.ReviewSessionRepository,
	rules *repository.RuleRepository,
	references *repository.ReferenceRepository,
	assistant *Assistant,
	log *zap.Logger,
) *ReviewService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewService{
		sessions:   sessions,
		rules:      rules,
		references: references,
		assistant:  assistant,
		log:        log,
	}
}

func (s *ReviewService) Create(ctx context.Context, title string) (*model.ReviewSession, error) {
	session := model.NewReviewSession()
	if title = strings.TrimSpace(title); title != "" {
		session.Title = title
	}
	if _, err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ReviewService) List(ctx context.Context) ([]model.ReviewSession, error) {
	return s.sessions.List(ctx)
}

func (s *ReviewService) Get(ctx context.Context, id string) (*model.ReviewSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Save reconciles an edited copy into the stored list. Returns true when the session was new.
func (s *ReviewService) Save(ctx context.Context, session *model.ReviewSession) (bool, error) {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return false, ErrInvalidInput
	}
	if session.Status == "" {
		session.Status = model.StatusDraft
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = model.NowMillis()
	}
	if session.Documents == nil {
		session.Documents = []model.ReviewDocument{}
	}
	if session.ExtractedData == nil {
		session.ExtractedData = []model.ExtractedInfo{}
	}
	return s.sessions.Save(ctx, session)
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	ok, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// AddDocument parses an upload and attaches it to the session.
func (s *ReviewService) AddDocument(ctx context.Context, sessionID, fileName string, data []byte) (*model.ReviewDocument, error) {
	doc, err := NewDocument(fileName, data)
	if err != nil {
		return nil, err
	}
	if doc.Type == model.DocPDF && doc.ExtractedText == "" {
		s.log.Warn("pdf text extraction returned nothing", zap.String("file", fileName))
	}

	if _, err := s.update(ctx, sessionID, func(session *model.ReviewSession) error {
		session.AddDocument(*doc)
		return nil
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *ReviewService) UpdateDocument(ctx context.Context, sessionID, docID string, input UpdateDocumentInput) (*model.ReviewDocument, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidInput
	}
	var out model.ReviewDocument
	_, err := s.update(ctx, sessionID, func(session *model.ReviewSession) error {
		doc := session.Document(docID)
		if doc == nil {
			return ErrDocumentNotFound
		}
		if input.Name != nil {
			doc.Name = strings.TrimSpace(*input.Name)
		}
		if input.Content != nil {
			if doc.Type == model.DocPDF {
				return ErrInvalidInput
			}
			doc.Content = *input.Content
			doc.ExtractedText = *input.Content
		}
		out = doc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReviewService) RemoveDocument(ctx context.Context, sessionID, docID string) error {
	_, err := s.update(ctx, sessionID, func(session *model.ReviewSession) error {
		if !session.RemoveDocument(docID) {
			return ErrDocumentNotFound
		}
		return nil
	})
	return err
}

// Snapshot stores the document's current fields as its newest version.
func (s *ReviewService) Snapshot(ctx context.Context, sessionID, docID string) (*model.DocumentVersion, error) {
	var version model.DocumentVersion
	_, err := s.update(ctx, sessionID, func(session *model.ReviewSession) error {
		doc := session.Document(docID)
		if doc == nil {
			return ErrDocumentNotFound
		}
		version = doc.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// Revert copies a version back onto the live document; other versions are untouched.
func (s *ReviewService) Revert(ctx context.Context, sessionID, docID, versionID string) (*model.ReviewDocument, error) {
	var out model.ReviewDocument
	_, err := s.update(ctx, sessionID, func(session *model.ReviewSession) error {
		doc := session.Document(docID)
		if doc == nil {
			return ErrDocumentNotFound
		}
		if !doc.Revert(versionID) {
			return ErrVersionNotFound
		}
		out = doc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract runs key-information extraction and stores the rows on the session.
func (s *ReviewService) Extract(ctx context.Context, sessionID string, call ai.CallConfig) (*model.ReviewSession, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := s.references.List(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.assistant.ExtractKeyInformation(ctx, call, session.Documents, rules, refs)
	if err != nil {
		s.log.Error("extraction failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	return s.update(ctx, sessionID, func(stored *model.ReviewSession) error {
		stored.ExtractedData = rows
		return nil
	})
}

// Summarize generates the executive summary. focus is kept as the session's summary prompt.
func (s *ReviewService) Summarize(ctx context.Context, sessionID string, call ai.CallConfig, focus string) (*model.ReviewSession, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary, err := s.assistant.GenerateSummary(ctx, call, session.Documents, focus)
	if err != nil {
		s.log.Error("summary failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	return s.update(ctx, sessionID, func(stored *model.ReviewSession) error {
		stored.Summary = summary
		stored.SummaryPrompt = focus
		return nil
	})
}

// DraftOpinion writes the review opinion from the stored extraction and completes the session.
func (s *ReviewService) DraftOpinion(ctx context.Context, sessionID string, call ai.CallConfig) (*model.ReviewSession, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	opinion, err := s.assistant.DraftReviewOpinion(ctx, call, session.Documents, rules, session.ExtractedData)
	if err != nil {
		s.log.Error("opinion failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	return s.update(ctx, sessionID, func(stored *model.ReviewSession) error {
		stored.Opinion = opinion
		stored.Status = model.StatusCompleted
		return nil
	})
}

// RunAll chains extraction, summary and opinion. Each finished step is saved
// before the next one starts.
func (s *ReviewService) RunAll(ctx context.Context, sessionID string, call ai.CallConfig, focus string) (*model.ReviewSession, error) {
	if _, err := s.Extract(ctx, sessionID, call); err != nil {
		return nil, err
	}
	if _, err := s.Summarize(ctx, sessionID, call, focus); err != nil {
		return nil, err
	}
	return s.DraftOpinion(ctx, sessionID, call)
}

func (s *ReviewService) update(ctx context.Context, id string, fn func(*model.ReviewSession) error) (*model.ReviewSession, error) {
	session, err := s.sessions.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
