package pipeline

// SampleResponses are canned replies keyed by stage role line. They drive the
// mock provider for offline runs and demos.
func SampleResponses() map[string]string {
	return map[string]string{
		RoleAnalyzer: `{
  "summary": "The client wants to migrate its on-premise workloads to the cloud while meeting a 99.9% uptime SLA.",
  "objectives": ["Move core workloads to a public cloud", "Guarantee 99.9% availability"],
  "scope": "Assessment, migration planning, execution and hypercare",
  "industry": "Technology"
}`,
		RoleChallenges: `{
  "challenges": [
    {"description": "Legacy workloads must move without extended downtime", "category": "Technology", "impact": "high"},
    {"description": "Availability must stay above the 99.9% uptime SLA", "category": "Operations", "impact": "high"},
    {"description": "Migration costs need a clear business case", "category": "Business", "impact": "medium"}
  ]
}`,
		RoleQuestions: `{
  "questions": {
    "Business": ["Which business services are most sensitive to downtime?", "What budget range is approved for the migration?"],
    "Technology": ["Which workloads depend on on-premise hardware?", "How is availability measured today?"]
  }
}`,
		RolePropositions: `{
  "value_propositions": [
    "Phased migration playbook that keeps critical services online",
    "Availability engineering that is contractually backed by the SLA"
  ]
}`,
		RoleIntroduction: `{
  "introduction": "We propose a phased cloud migration that protects your uptime commitments. Our approach pairs proven migration tooling with availability engineering from day one."
}`,
	}
}
