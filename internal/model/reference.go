package model

type ReferenceCategory string

const (
	RefHR          ReferenceCategory = "HR"
	RefFinancial   ReferenceCategory = "Financial"
	RefLegal       ReferenceCategory = "Legal"
	RefOperational ReferenceCategory = "Operational"
	RefCompliance  ReferenceCategory = "Compliance"
)

var ReferenceCategories = []string{
	string(RefHR),
	string(RefFinancial),
	string(RefLegal),
	string(RefOperational),
	string(RefCompliance),
}

// ReferenceDocument is background or policy material used for knowledge-base answers.
type ReferenceDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Type     DocumentType      `json:"type"`
	Category ReferenceCategory `json:"category"`
	Active   bool              `json:"active"`
	Tags     []string          `json:"tags,omitempty"`
}

func ActiveReferences(refs []ReferenceDocument) []ReferenceDocument {
	out := make([]ReferenceDocument, 0, len(refs))
	for _, r := range refs {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}
