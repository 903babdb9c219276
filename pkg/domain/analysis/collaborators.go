package analysis

import "context"

// ContextRetriever fetches supporting context for a document from the
// retrieval service. Empty text is a valid answer.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, documentID string) (string, error)
}

// MatchQuery describes what a case-study lookup is matched against.
type MatchQuery struct {
	Industry   string
	Challenges []Challenge
	Limit      int
}

// CaseStudyIndex returns case studies relevant to a set of challenges, best match first.
type CaseStudyIndex interface {
	MatchCaseStudies(ctx context.Context, q MatchQuery) ([]CaseStudyRef, error)
}

// DeliverableStore persists the output of a finished run.
type DeliverableStore interface {
	SaveDeliverable(ctx context.Context, projectID string, d *Deliverable) error
}
