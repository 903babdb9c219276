package analysis

import (
	"fmt"
	"time"
)

// StageName identifies one node of the analysis graph.
type StageName string

const (
	StageRFPAnalyzer        StageName = "rfp_analyzer"
	StageChallengeExtractor StageName = "challenge_extractor"
	StageDiscoveryQuestions StageName = "discovery_question_generator"
	StageValuePropositions  StageName = "value_proposition_generator"
	StageCaseStudyMatcher   StageName = "case_study_matcher"
	StageProposalBuilder    StageName = "proposal_builder"
)

// StageStatus is the outcome recorded in an execution log entry.
type StageStatus string

const (
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// Proposal section names, in the order the builder emits them.
const (
	SectionSummary     = "Summary"
	SectionChallenges  = "Challenges"
	SectionQuestions   = "Questions"
	SectionValueProps  = "ValueProps"
	SectionCaseStudies = "CaseStudies"
)

// Challenge is one client problem extracted from the RFP.
type Challenge struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Impact      string `json:"impact"`
}

// CaseStudyRef points at a case study with the reason it was matched.
type CaseStudyRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Industry  string `json:"industry,omitempty"`
	Rationale string `json:"rationale"`
	Score     int    `json:"score"`
}

// Section is one named block of the proposal draft.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ProposalDraft is the structured proposal document.
type ProposalDraft struct {
	Sections []Section `json:"sections"`
}

// SectionNames returns the section names in order.
func (d ProposalDraft) SectionNames() []string {
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Name)
	}
	return names
}

// StageError is one entry of the tagged error trail.
type StageError struct {
	Stage     StageName `json:"stage"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntry records one attempted stage.
type LogEntry struct {
	Stage      StageName   `json:"stage"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
	Status     StageStatus `json:"status"`
}

// SharedState is the record threaded through every stage of one run.
// Only the orchestrator that owns the run mutates it; everyone else reads a Snapshot.
type SharedState struct {
	ID        RunID     `json:"run_id"`
	Status    RunStatus `json:"status"`
	Populated FieldSet  `json:"populated"`

	InputText          string              `json:"input_text"`
	RetrievedContext   string              `json:"retrieved_context,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Objectives         []string            `json:"objectives,omitempty"`
	Scope              string              `json:"scope,omitempty"`
	Industry           string              `json:"industry,omitempty"`
	Challenges         []Challenge         `json:"challenges,omitempty"`
	DiscoveryQuestions map[string][]string `json:"discovery_questions,omitempty"`
	ValuePropositions  []string            `json:"value_propositions,omitempty"`
	MatchedCaseStudies []CaseStudyRef      `json:"matched_case_studies,omitempty"`
	ProposalDraft      *ProposalDraft      `json:"proposal_draft,omitempty"`

	Errors       []StageError `json:"errors"`
	ExecutionLog []LogEntry   `json:"execution_log"`
	Warnings     []string     `json:"warnings,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewSharedState creates the state of a fresh run with only the input text populated.
func NewSharedState(id RunID, inputText string, now time.Time) *SharedState {
	return &SharedState{
		ID:           id,
		Status:       RunPending,
		Populated:    FieldInput,
		InputText:    inputText,
		Errors:       []StageError{},
		ExecutionLog: []LogEntry{},
		StartedAt:    now,
	}
}

// Require returns a DependencyError when any of fields is not yet populated.
func (s *SharedState) Require(stage StageName, fields FieldSet) error {
	if missing := s.Populated.Missing(fields); missing != 0 {
		return &DependencyError{Stage: stage, Missing: missing}
	}
	return nil
}

// SetRetrievedContext stores the context text. Empty context leaves the field unset.
func (s *SharedState) SetRetrievedContext(text string) {
	if text == "" {
		return
	}
	s.RetrievedContext = text
	s.Populated |= FieldContext
}

// StageUpdate is the partial state a successful stage hands back.
// Fields lists what the update writes; everything else is ignored.
type StageUpdate struct {
	Fields             FieldSet
	Summary            string
	Objectives         []string
	Scope              string
	Industry           string
	Challenges         []Challenge
	DiscoveryQuestions map[string][]string
	ValuePropositions  []string
	MatchedCaseStudies []CaseStudyRef
	ProposalDraft      *ProposalDraft
}

// Apply merges a stage's update. Updates that write fields outside owned are
// rejected without touching the state.
func (s *SharedState) Apply(stage StageName, owned FieldSet, u StageUpdate) error {
	if extra := u.Fields &^ owned; extra != 0 {
		return fmt.Errorf("stage %s wrote fields it does not own [%s]: %w", stage, extra, ErrDependency)
	}
	if u.Fields.Has(FieldSummary) {
		s.Summary = u.Summary
	}
	if u.Fields.Has(FieldObjectives) {
		s.Objectives = cloneStrings(u.Objectives)
	}
	if u.Fields.Has(FieldScope) {
		s.Scope = u.Scope
	}
	if u.Fields.Has(FieldIndustry) {
		s.Industry = u.Industry
	}
	if u.Fields.Has(FieldChallenges) {
		s.Challenges = append([]Challenge(nil), u.Challenges...)
	}
	if u.Fields.Has(FieldQuestions) {
		s.DiscoveryQuestions = cloneQuestions(u.DiscoveryQuestions)
	}
	if u.Fields.Has(FieldPropositions) {
		s.ValuePropositions = cloneStrings(u.ValuePropositions)
	}
	if u.Fields.Has(FieldMatches) {
		s.MatchedCaseStudies = append([]CaseStudyRef(nil), u.MatchedCaseStudies...)
	}
	if u.Fields.Has(FieldDraft) && u.ProposalDraft != nil {
		s.ProposalDraft = cloneDraft(u.ProposalDraft)
	}
	s.Populated |= u.Fields
	return nil
}

// StartStage appends a running log entry for stage.
func (s *SharedState) StartStage(stage StageName, at time.Time) {
	s.ExecutionLog = append(s.ExecutionLog, LogEntry{Stage: stage, StartedAt: at, Status: StageRunning})
}

// FinishStage closes the most recent log entry for stage.
func (s *SharedState) FinishStage(stage StageName, status StageStatus, at time.Time) {
	for i := len(s.ExecutionLog) - 1; i >= 0; i-- {
		entry := &s.ExecutionLog[i]
		if entry.Stage != stage || entry.Status != StageRunning {
			continue
		}
		if at.Before(entry.StartedAt) {
			at = entry.StartedAt
		}
		entry.FinishedAt = at
		entry.Status = status
		return
	}
}

// RecordError appends to the tagged error trail.
func (s *SharedState) RecordError(stage StageName, kind ErrorKind, message string, at time.Time) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Kind: kind, Message: message, Timestamp: at})
}

// StageSucceeded reports whether the log holds a succeeded entry for stage.
func (s *SharedState) StageSucceeded(stage StageName) bool {
	for _, e := range s.ExecutionLog {
		if e.Stage == stage && e.Status == StageSucceeded {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy that shares no memory with s.
func (s *SharedState) Snapshot() *SharedState {
	if s == nil {
		return nil
	}
	c := *s
	c.Objectives = cloneStrings(s.Objectives)
	c.Challenges = append([]Challenge(nil), s.Challenges...)
	c.DiscoveryQuestions = cloneQuestions(s.DiscoveryQuestions)
	c.ValuePropositions = cloneStrings(s.ValuePropositions)
	c.MatchedCaseStudies = append([]CaseStudyRef(nil), s.MatchedCaseStudies...)
	c.ProposalDraft = cloneDraft(s.ProposalDraft)
	c.Errors = append([]StageError{}, s.Errors...)
	c.ExecutionLog = append([]LogEntry{}, s.ExecutionLog...)
	c.Warnings = cloneStrings(s.Warnings)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneQuestions(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}

func cloneDraft(in *ProposalDraft) *ProposalDraft {
	if in == nil {
		return nil
	}
	return &ProposalDraft{Sections: append([]Section(nil), in.Sections...)}
}
