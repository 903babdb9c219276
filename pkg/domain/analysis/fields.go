package analysis

import "strings"

// FieldSet is a bitmask of SharedState fields. It records which fields a run
// has populated and which fields a stage reads or writes.
type FieldSet uint16

const (
	FieldInput FieldSet = 1 << iota
	FieldContext
	FieldSummary
	FieldObjectives
	FieldScope
	FieldIndustry
	FieldChallenges
	FieldQuestions
	FieldPropositions
	FieldMatches
	FieldDraft
)

var fieldNames = []struct {
	field FieldSet
	name  string
}{
	{FieldInput, "input_text"},
	{FieldContext, "retrieved_context"},
	{FieldSummary, "summary"},
	{FieldObjectives, "objectives"},
	{FieldScope, "scope"},
	{FieldIndustry, "industry"},
	{FieldChallenges, "challenges"},
	{FieldQuestions, "discovery_questions"},
	{FieldPropositions, "value_propositions"},
	{FieldMatches, "matched_case_studies"},
	{FieldDraft, "proposal_draft"},
}

// Has reports whether every field in want is present.
func (f FieldSet) Has(want FieldSet) bool {
	return f&want == want
}

// Missing returns the fields of want that are not present.
func (f FieldSet) Missing(want FieldSet) FieldSet {
	return want &^ f
}

// Names lists the fields in declaration order.
func (f FieldSet) Names() []string {
	var names []string
	for _, fn := range fieldNames {
		if f&fn.field != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f FieldSet) String() string {
	return strings.Join(f.Names(), ",")
}
