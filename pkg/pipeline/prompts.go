package pipeline

// Role lines open each instruction template. They are unique per stage.
const (
	RoleAnalyzer     = "You are a presales RFP analyst."
	RoleChallenges   = "You are a solution architect extracting client challenges."
	RoleQuestions    = "You are a presales consultant preparing discovery questions."
	RolePropositions = "You are a bid manager writing value propositions."
	RoleIntroduction = "You are a proposal writer drafting an executive introduction."
)

const analyzerInstruction = RoleAnalyzer + `
Read the request-for-proposal and describe what the client is asking for.
Return ONLY a JSON object with no surrounding text, no markdown, and no code fences:
{"summary": "3-5 sentence summary", "objectives": ["business objective", ...], "scope": "scope of work", "industry": "client industry"}`

const challengesInstruction = RoleChallenges + `
From the analysis below, list the problems the client needs solved.
Each challenge has a category (Business, Technology, Operations, Compliance, or Financial)
and an impact of high, medium, or low.
Return ONLY a JSON object with no surrounding text, no markdown, and no code fences:
{"challenges": [{"description": "...", "category": "...", "impact": "high|medium|low"}]}`

const questionsInstruction = RoleQuestions + `
Write questions to ask the client in the discovery workshop, grouped by category.
Use at least the categories Business and Technology.
Return ONLY a JSON object with no surrounding text, no markdown, and no code fences:
{"questions": {"Business": ["..."], "Technology": ["..."]}}`

const propositionsInstruction = RolePropositions + `
Write concise value propositions that answer the client's challenges.
Return ONLY a JSON object with no surrounding text, no markdown, and no code fences:
{"value_propositions": ["...", "..."]}`

const introductionInstruction = RoleIntroduction + `
Write a two-sentence opening paragraph for the proposal.
Return ONLY a JSON object with no surrounding text, no markdown, and no code fences:
{"introduction": "..."}`
