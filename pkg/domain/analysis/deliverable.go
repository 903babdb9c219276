package analysis

import "time"

// Deliverable is the final output of a run handed to the insight store.
type Deliverable struct {
	RunID              string              `json:"run_id"`
	ProjectID          string              `json:"project_id"`
	DocumentID         string              `json:"document_id"`
	Status             RunStatus           `json:"status"`
	Summary            string              `json:"summary"`
	Objectives         []string            `json:"objectives,omitempty"`
	Scope              string              `json:"scope,omitempty"`
	Industry           string              `json:"industry,omitempty"`
	Challenges         []Challenge         `json:"challenges"`
	DiscoveryQuestions map[string][]string `json:"discovery_questions,omitempty"`
	ValuePropositions  []string            `json:"value_propositions,omitempty"`
	MatchedCaseStudies []CaseStudyRef      `json:"matched_case_studies,omitempty"`
	ProposalDraft      *ProposalDraft      `json:"proposal_draft,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
	CompletedAt        time.Time           `json:"completed_at"`
}

// Deliverable extracts the final output from a copy of the state.
func (s *SharedState) Deliverable() *Deliverable {
	c := s.Snapshot()
	return &Deliverable{
		RunID:              c.ID.String(),
		ProjectID:          c.ID.ProjectID,
		DocumentID:         c.ID.DocumentID,
		Status:             c.Status,
		Summary:            c.Summary,
		Objectives:         c.Objectives,
		Scope:              c.Scope,
		Industry:           c.Industry,
		Challenges:         c.Challenges,
		DiscoveryQuestions: c.DiscoveryQuestions,
		ValuePropositions:  c.ValuePropositions,
		MatchedCaseStudies: c.MatchedCaseStudies,
		ProposalDraft:      c.ProposalDraft,
		Warnings:           c.Warnings,
		CompletedAt:        c.FinishedAt,
	}
}
