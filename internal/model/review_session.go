package model

type SessionStatus string

const (
	StatusDraft      SessionStatus = "Draft"
	StatusProcessing SessionStatus = "Processing"
	StatusCompleted  SessionStatus = "Completed"
)

const UntitledReview = "Untitled Review"

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ExtractedInfo is one risk or data point found by extraction, in provider order.
type ExtractedInfo struct {
	Field         string    `json:"field"`
	Value         string    `json:"value"`
	SourceContext string    `json:"sourceContext"`
	RiskLevel     RiskLevel `json:"riskLevel"`
}

type ReviewSession struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Status        SessionStatus    `json:"status"`
	Documents     []ReviewDocument `json:"documents"`
	ExtractedData []ExtractedInfo  `json:"extractedData"`
	Summary       string           `json:"summary"`
	SummaryPrompt string           `json:"summaryPrompt"`
	Opinion       string           `json:"opinion"`
	CreatedAt     int64            `json:"createdAt"`
}

func NewReviewSession() *ReviewSession {
	return &ReviewSession{
		ID:            NewID(),
		Title:         UntitledReview,
		Status:        StatusDraft,
		Documents:     []ReviewDocument{},
		ExtractedData: []ExtractedInfo{},
		CreatedAt:     NowMillis(),
	}
}

// AddDocument appends doc; the first document of an untitled session names it.
func (s *ReviewSession) AddDocument(doc ReviewDocument) {
	if len(s.Documents) == 0 && (s.Title == "" || s.Title == UntitledReview) {
		s.Title = doc.Name
	}
	s.Documents = append(s.Documents, doc)
}

func (s *ReviewSession) Document(id string) *ReviewDocument {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i]
		}
	}
	return nil
}

func (s *ReviewSession) RemoveDocument(id string) bool {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			s.Documents = append(s.Documents[:i], s.Documents[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never alias persisted state.
func (s ReviewSession) Clone() ReviewSession {
	out := s
	out.Documents = CloneDocuments(s.Documents)
	if s.ExtractedData != nil {
		out.ExtractedData = make([]ExtractedInfo, len(s.ExtractedData))
		copy(out.ExtractedData, s.ExtractedData)
	}
	return out
}
