package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

func TestRulesFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(kv.NewMemoryStore())

	rules, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRules(), rules)

	require.NoError(t, repo.Create(ctx, &model.Rule{ID: "4", Title: "new", Active: true}))
	rules, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 4)
	assert.Equal(t, "4", rules[3].ID)
}

func TestRuleUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(kv.NewMemoryStore())

	updated, err := repo.Update(ctx, "1", func(r *model.Rule) { r.Active = false })
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, updated.Active)

	missing, err := repo.Update(ctx, "nope", func(r *model.Rule) {})
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err := repo.Delete(ctx, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewReviewSessionRepository(store)

	session := model.NewReviewSession()
	session.AddDocument(model.ReviewDocument{
		ID: "d1", Name: "proposal.pdf", Content: "JVBERi0=", ExtractedText: "budget 60000",
		Type: model.DocPDF, MIMEType: model.MIMETypePDF,
	})
	session.Documents[0].Snapshot()
	session.ExtractedData = []model.ExtractedInfo{
		{Field: "Budget", Value: "60000", SourceContext: "budget 60000", RiskLevel: model.RiskHigh},
	}
	session.Summary = "summary"
	session.Opinion = "opinion"

	created, err := repo.Save(ctx, session)
	require.NoError(t, err)
	assert.True(t, created)

	// reload through a fresh repository over the same persisted state
	reloaded, err := NewReviewSessionRepository(store).GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, session.Documents, reloaded.Documents)
	assert.Equal(t, session.ExtractedData, reloaded.ExtractedData)
	assert.Equal(t, session.Summary, reloaded.Summary)
	assert.Equal(t, session.Opinion, reloaded.Opinion)
}

func TestReviewSessionSavePrependsNewAndReplacesExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewSessionRepository(kv.NewMemoryStore())

	first := &model.ReviewSession{ID: "a", Title: "first"}
	second := &model.ReviewSession{ID: "b", Title: "second"}
	_, err := repo.Save(ctx, first)
	require.NoError(t, err)
	_, err = repo.Save(ctx, second)
	require.NoError(t, err)

	first.Title = "first edited"
	created, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.False(t, created)

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)
	assert.Equal(t, "first edited", sessions[1].Title)
}

func TestReturnedSessionsDoNotAliasStorage(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewSessionRepository(kv.NewMemoryStore())
	_, err := repo.Save(ctx, &model.ReviewSession{ID: "a", Summary: "kept"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Summary = "mutated"

	again, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "kept", again.Summary)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := NewReferenceRepository(kv.NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, &model.ReferenceDocument{ID: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	refs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 20)
}

func TestDistillSessionUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewDistillSessionRepository(kv.NewMemoryStore())
	_, err := repo.Save(ctx, &model.DistillSession{ID: "s", Type: model.DistillSWOT, VisualData: map[string]string{}})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "s", func(s *model.DistillSession) error {
		s.VisualData["SWOT"] = "data:image/png;base64,AA=="
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AA==", updated.VisualData["SWOT"])

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AA==", sessions[0].VisualData["SWOT"])
}

func TestSettingsDefaultToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(kv.NewMemoryStore())

	settings, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AISettings{}, settings)

	require.NoError(t, repo.Save(ctx, model.AISettings{DeepSeekKey: "sk-1"}))
	settings, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-1", settings.DeepSeekKey)
}
