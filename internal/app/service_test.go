package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartaudit/internal/ai"
	"smartaudit/internal/kv"
	"smartaudit/internal/model"
	"smartaudit/internal/repository"
)

type services struct {
	chat       *fakeChatter
	store      kv.Store
	rules      *RuleService
	references *ReferenceService
	reviews    *ReviewService
	distill    *DistillService
	settings   *SettingsService
}

func newServices(t *testing.T, publisher ImportPublisher) *services {
	t.Helper()
	store := kv.NewMemoryStore()
	chat := newFakeChatter()
	assistant := NewAssistant(chat, nil)
	ruleRepo := repository.NewRuleRepository(store)
	refRepo := repository.NewReferenceRepository(store)
	settings := NewSettingsService(repository.NewSettingsRepository(store), SettingsDefaults{})
	return &services{
		chat:       chat,
		store:      store,
		rules:      NewRuleService(ruleRepo, assistant, nil),
		references: NewReferenceService(refRepo, ruleRepo, settings, assistant, publisher, 2, nil),
		reviews:    NewReviewService(repository.NewReviewSessionRepository(store), ruleRepo, refRepo, assistant, nil),
		distill:    NewDistillService(repository.NewDistillSessionRepository(store), assistant, time.Minute, nil),
		settings:   settings,
	}
}

type recordingPublisher struct {
	jobs []ImportJob
	err  error
}

func (p *recordingPublisher) PublishImport(_ context.Context, job ImportJob) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func TestRuleCreateValidatesCategory(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()

	_, err := s.rules.Create(ctx, CreateRuleInput{Title: "t", Content: "c", Category: "Weather"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	rule, err := s.rules.Create(ctx, CreateRuleInput{Title: " Travel ", Content: "Economy only", Category: string(model.RuleFinancial)})
	require.NoError(t, err)
	assert.Equal(t, "Travel", rule.Title)
	assert.True(t, rule.Active)

	toggled, err := s.rules.Toggle(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	_, err = s.rules.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, s.rules.Delete(ctx, "missing"), ErrRuleNotFound)
}

func TestRuleImportUsesModelCategory(t *testing.T) {
	s := newServices(t, nil)
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return " Compliance \n", nil }

	rule, err := s.rules.Import(context.Background(), ImportRuleInput{
		FileName: "travel-policy.txt",
		Data:     []byte("Employees fly economy."),
		Call:     geminiCall,
	})
	require.NoError(t, err)
	assert.Equal(t, "travel-policy", rule.Title)
	assert.Equal(t, model.RuleCategory("Compliance"), rule.Category)
	assert.Equal(t, categorizeMaxTokens, s.chat.chats[0].MaxTokens)
}

func TestReferenceImportReportsPerFileFailures(t *testing.T) {
	s := newServices(t, nil)
	s.chat.chatFn = func(in ai.ChatInput) (string, error) {
		if in.JSON {
			return `["budget","travel"]`, nil
		}
		if strings.Contains(in.Prompt, "broken") {
			return "", errors.New("provider down")
		}
		return "Financial", nil
	}

	report, err := s.references.Import(context.Background(), deepseekCall, []UploadedFile{
		{Name: "a.txt", Data: []byte("alpha budget")},
		{Name: "b.md", Data: []byte("beta travel")},
		{Name: "c.exe", Data: []byte("binary")},
		{Name: "d.txt", Data: []byte("broken file")},
	})
	require.NoError(t, err)
	require.Len(t, report.Imported, 2)
	require.Len(t, report.Failed, 2)

	failed := []string{report.Failed[0].File, report.Failed[1].File}
	sort.Strings(failed)
	assert.Equal(t, []string{"c.exe", "d.txt"}, failed)

	refs, err := s.references.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	for _, r := range refs {
		assert.True(t, r.Active)
		assert.Equal(t, model.RefFinancial, r.Category)
		assert.Equal(t, []string{"budget", "travel"}, r.Tags)
	}
}

func TestReferenceImportSurvivesMalformedPDF(t *testing.T) {
	s := newServices(t, nil)
	s.chat.chatFn = func(in ai.ChatInput) (string, error) {
		if in.JSON {
			return `["budget"]`, nil
		}
		return "Financial", nil
	}

	report, err := s.references.Import(context.Background(), deepseekCall, []UploadedFile{
		{Name: "scan.pdf", Data: []byte("%PDF-1.4\n<zz>\ntrailer\n<<>>\nstartxref\n9\n%%EOF\n")},
		{Name: "policy.txt", Data: []byte("travel budget policy")},
	})
	require.NoError(t, err)
	require.Len(t, report.Imported, 1)
	assert.Equal(t, "policy", report.Imported[0].Title)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "scan.pdf", report.Failed[0].File)
}

func TestReferenceEnqueue(t *testing.T) {
	ctx := context.Background()
	files := []UploadedFile{{Name: "a.txt", Data: []byte("alpha")}}

	_, err := newServices(t, nil).references.Enqueue(ctx, "", "", files)
	assert.ErrorIs(t, err, ErrAsyncImportDisabled)

	failing := &recordingPublisher{err: errors.New("broker gone")}
	_, err = newServices(t, failing).references.Enqueue(ctx, "", "", files)
	assert.ErrorIs(t, err, ErrImportEnqueue)

	pub := &recordingPublisher{}
	job, err := newServices(t, pub).references.Enqueue(ctx, "deepseek", "en", files)
	require.NoError(t, err)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, job.ID, pub.jobs[0].ID)
	assert.Equal(t, files, pub.jobs[0].Files)
	assert.Empty(t, job.Files)
}

func TestProcessImportJobResolvesSettings(t *testing.T) {
	s := newServices(t, nil)
	s.chat.chatFn = func(in ai.ChatInput) (string, error) {
		if in.JSON {
			return "[]", nil
		}
		return "Legal", nil
	}

	report, err := s.references.ProcessImportJob(context.Background(), ImportJob{
		ID: "job", Provider: "minimax", Language: "en",
		Files: []UploadedFile{{Name: "a.txt", Data: []byte("alpha")}},
	})
	require.NoError(t, err)
	assert.Len(t, report.Imported, 1)
	assert.Equal(t, ai.ProviderMiniMax, s.chat.configs[0].Provider)
	assert.Equal(t, ai.LanguageEN, s.chat.configs[0].Language)

	_, err = s.references.ProcessImportJob(context.Background(), ImportJob{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReferenceSearch(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	repo := repository.NewReferenceRepository(s.store)
	require.NoError(t, repo.Append(ctx, &model.ReferenceDocument{ID: "1", Title: "Budget Guide", Content: "capital spending", Active: true}))
	require.NoError(t, repo.Append(ctx, &model.ReferenceDocument{ID: "2", Title: "Travel", Content: "budget for trips", Active: true, Tags: []string{"expense"}}))

	got, err := s.references.Search(ctx, "budget -capital")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got, err = s.references.Search(ctx, "expense")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestReviewWorkflowKeepsDataOnFailure(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()

	session, err := s.reviews.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, session.Status)

	doc, err := s.reviews.AddDocument(ctx, session.ID, "proposal.txt", []byte("Budget 60000 USD"))
	require.NoError(t, err)
	assert.Equal(t, model.DocTXT, doc.Type)

	s.chat.chatFn = func(ai.ChatInput) (string, error) {
		return `[{"field":"Budget","value":"60000","sourceContext":"line 1","riskLevel":"High"}]`, nil
	}
	stored, err := s.reviews.Extract(ctx, session.ID, geminiCall)
	require.NoError(t, err)
	require.Len(t, stored.ExtractedData, 1)
	assert.Equal(t, "proposal", strings.TrimSuffix(stored.Title, ".txt"))

	boom := errors.New("quota")
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "", boom }
	_, err = s.reviews.Extract(ctx, session.ID, geminiCall)
	assert.ErrorIs(t, err, boom)
	_, err = s.reviews.Summarize(ctx, session.ID, geminiCall, "focus")
	assert.ErrorIs(t, err, boom)

	kept, err := s.reviews.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, kept.ExtractedData, 1)
	assert.Empty(t, kept.Summary)
	assert.Empty(t, kept.SummaryPrompt)

	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "Approve with conditions.", nil }
	done, err := s.reviews.DraftOpinion(ctx, session.ID, geminiCall)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, "Approve with conditions.", done.Opinion)
}

func TestReviewDocumentVersions(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	session, err := s.reviews.Create(ctx, "Q3 proposal")
	require.NoError(t, err)
	doc, err := s.reviews.AddDocument(ctx, session.ID, "notes.txt", []byte("first draft"))
	require.NoError(t, err)

	version, err := s.reviews.Snapshot(ctx, session.ID, doc.ID)
	require.NoError(t, err)

	edited := "second draft"
	updated, err := s.reviews.UpdateDocument(ctx, session.ID, doc.ID, UpdateDocumentInput{Content: &edited})
	require.NoError(t, err)
	assert.Equal(t, edited, updated.Content)

	reverted, err := s.reviews.Revert(ctx, session.ID, doc.ID, version.ID)
	require.NoError(t, err)
	assert.Equal(t, "first draft", reverted.Content)

	_, err = s.reviews.Revert(ctx, session.ID, doc.ID, "nope")
	assert.ErrorIs(t, err, ErrVersionNotFound)
	_, err = s.reviews.Snapshot(ctx, session.ID, "nope")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = s.reviews.Extract(ctx, "nope", geminiCall)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAddDocumentRejectsUnsupportedType(t *testing.T) {
	s := newServices(t, nil)
	session, err := s.reviews.Create(context.Background(), "")
	require.NoError(t, err)

	_, err = s.reviews.AddDocument(context.Background(), session.ID, "tool.exe", []byte("MZ"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDistillRunPrependsAndRerunReplaces(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "## Summary", nil }
	docs := []model.ReviewDocument{textDoc("plan.txt", "roadmap")}

	first, err := s.distill.Run(ctx, geminiCall, RunDistillInput{Type: model.DistillExecutive, Documents: docs})
	require.NoError(t, err)
	assert.Equal(t, "plan.txt", first.Title)
	assert.Contains(t, s.chat.chats[0].SystemInstruction, focusDirectiveLabel+": "+strings.TrimSpace(distillPrompt(ai.LanguageZH, model.DistillExecutive)))

	second, err := s.distill.Run(ctx, geminiCall, RunDistillInput{Type: model.DistillSWOT, Documents: docs})
	require.NoError(t, err)

	_, err = s.distill.Rename(ctx, first.ID, "Roadmap")
	require.NoError(t, err)
	rerun, err := s.distill.Run(ctx, geminiCall, RunDistillInput{SessionID: first.ID, Type: model.DistillMindmap})
	require.NoError(t, err)
	assert.Equal(t, first.ID, rerun.ID)
	assert.Equal(t, "Roadmap", rerun.Title)
	assert.Empty(t, rerun.VisualData)

	history, err := s.distill.List(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, model.DistillMindmap, history[1].Type)

	_, err = s.distill.Run(ctx, geminiCall, RunDistillInput{Type: "Haiku", Documents: docs})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.distill.Run(ctx, geminiCall, RunDistillInput{Type: model.DistillSWOT})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestDistillPosterUsesIllustration(t *testing.T) {
	s := newServices(t, nil)
	s.chat.imageFn = func(string) (string, error) { return "data:image/png;base64,iVA=", nil }

	session, err := s.distill.Run(context.Background(), geminiCall, RunDistillInput{
		Type: model.DistillPoster, Documents: []model.ReviewDocument{textDoc("", "x")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.UntitledAnalysis, session.Title)
	assert.Equal(t, "data:image/png;base64,iVA=", session.Result)
	assert.Equal(t, 0, s.chat.chatCount())

	visual, err := s.distill.GenerateVisual(context.Background(), ai.LanguageZH, session.ID, 0)
	require.NoError(t, err)
	assert.True(t, visual.Cached)
	assert.Equal(t, 1, s.chat.imageCount())
}

func TestDistillVisualIsCachedPerSlide(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	s.chat.chatFn = func(ai.ChatInput) (string, error) {
		return "[Slide 1: Intro]\n- a\n[Slide 2: Costs]\n- b", nil
	}
	s.chat.imageFn = func(string) (string, error) { return "data:image/png;base64,iVA=", nil }

	session, err := s.distill.Run(ctx, geminiCall, RunDistillInput{
		Type: model.DistillPPT, Documents: []model.ReviewDocument{textDoc("deck.txt", "x")},
		Config: &model.DistillConfig{ThemeName: "Midnight"},
	})
	require.NoError(t, err)

	first, err := s.distill.GenerateVisual(ctx, ai.LanguageEN, session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "PPT_1", first.Key)
	assert.False(t, first.Cached)
	require.Equal(t, 1, s.chat.imageCount())
	assert.Contains(t, s.chat.images[0].prompt, "Costs")
	assert.NotContains(t, s.chat.images[0].prompt, "Intro")

	again, err := s.distill.GenerateVisual(ctx, ai.LanguageEN, session.ID, 1)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, s.chat.imageCount())

	adj, err := s.distill.SetAdjustments(ctx, session.ID, 1, model.AdjustmentsPatch{Sepia: ptr(0.5)})
	require.NoError(t, err)
	assert.Equal(t, 0.5, adj.Sepia)
	assert.Equal(t, 1.0, adj.Brightness)
}

func TestDistillVisualRefusesDuplicateInFlight(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "SWOT", nil }

	session, err := s.distill.Run(ctx, geminiCall, RunDistillInput{
		Type: model.DistillSWOT, Documents: []model.ReviewDocument{textDoc("s.txt", "x")},
	})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	s.chat.imageFn = func(string) (string, error) {
		close(started)
		<-release
		return "data:image/png;base64,iVA=", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.distill.GenerateVisual(ctx, ai.LanguageZH, session.ID, 0)
		assert.NoError(t, err)
	}()
	<-started

	_, err = s.distill.GenerateVisual(ctx, ai.LanguageZH, session.ID, 0)
	assert.ErrorIs(t, err, ErrVisualInProgress)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, s.chat.imageCount())
}

// gatedStore parks the first Get after arm until release is closed.
type gatedStore struct {
	kv.Store
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner kv.Store) *gatedStore {
	return &gatedStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	hold := g.armed
	g.armed = false
	g.mu.Unlock()

	raw, err := g.Store.Get(ctx, key)
	if hold {
		close(g.entered)
		<-g.release
	}
	return raw, err
}

func TestDistillVisualStoredWhileReadingIsNotRegenerated(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "SWOT", nil }
	s.chat.imageFn = func(string) (string, error) { return "data:image/png;base64,iVA=", nil }

	session, err := s.distill.Run(ctx, geminiCall, RunDistillInput{
		Type: model.DistillSWOT, Documents: []model.ReviewDocument{textDoc("s.txt", "x")},
	})
	require.NoError(t, err)

	// A second instance over the same store, as with replicas sharing redis.
	gated := newGatedStore(s.store)
	replica := NewDistillService(repository.NewDistillSessionRepository(gated),
		NewAssistant(s.chat, nil), time.Minute, nil)

	gated.arm()
	type outcome struct {
		res *VisualResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := replica.GenerateVisual(ctx, ai.LanguageZH, session.ID, 0)
		done <- outcome{res, err}
	}()
	<-gated.entered

	first, err := s.distill.GenerateVisual(ctx, ai.LanguageZH, session.ID, 0)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, 1, s.chat.imageCount())

	close(gated.release)
	got := <-done
	require.NoError(t, got.err)
	assert.True(t, got.res.Cached)
	assert.Equal(t, first.Image, got.res.Image)
	assert.Equal(t, 1, s.chat.imageCount())
}

func TestDistillReimagineNeedsVisual(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	s.chat.chatFn = func(ai.ChatInput) (string, error) { return "keywords", nil }

	session, err := s.distill.Run(ctx, geminiCall, RunDistillInput{
		Type: model.DistillKeywords, Documents: []model.ReviewDocument{textDoc("k.txt", "x")},
	})
	require.NoError(t, err)

	_, err = s.distill.Reimagine(ctx, session.ID, 0, "warmer colors")
	assert.ErrorIs(t, err, ErrNoVisual)

	s.chat.imageFn = func(string) (string, error) { return "data:image/png;base64,iVA=", nil }
	_, err = s.distill.GenerateVisual(ctx, ai.LanguageZH, session.ID, 0)
	require.NoError(t, err)

	s.chat.imageFn = func(string) (string, error) { return "data:image/jpeg;base64,/9g=", nil }
	out, err := s.distill.Reimagine(ctx, session.ID, 0, "warmer colors")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", out.Image)

	stored, err := s.distill.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", stored.VisualData["Keywords"])
}

func ptr[T any](v T) *T {
	return &v
}
