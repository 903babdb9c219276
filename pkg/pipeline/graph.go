package pipeline

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

var (
	ErrCyclicGraph   = errors.New("graph contains a cycle")
	ErrUnknownStage  = errors.New("unknown stage")
	ErrDuplicateNode = errors.New("stage already in graph")
)

// EdgeKind says what an upstream failure means for the downstream stage.
type EdgeKind string

const (
	// HardEdge: the downstream stage is skipped when the upstream stage failed.
	HardEdge EdgeKind = "hard"
	// SoftEdge: the downstream stage runs anyway and works with what it has.
	SoftEdge EdgeKind = "soft"
)

// Node is a stage in the graph.
type Node struct {
	Stage Stage
	// Critical nodes fail the whole run when they fail.
	Critical bool
}

// Edge orders two stages.
type Edge struct {
	From analysis.StageName
	To   analysis.StageName
	Kind EdgeKind
}

// Graph is the directed acyclic graph of stages. Nodes keep their declaration
// order, which is also the order results within a level are applied in.
type Graph struct {
	nodes []Node
	index map[analysis.StageName]int
	edges []Edge
}

func NewGraph() *Graph {
	return &Graph{index: make(map[analysis.StageName]int)}
}

// AddNode declares a stage.
func (g *Graph) AddNode(stage Stage, critical bool) error {
	if _, ok := g.index[stage.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, stage.Name())
	}
	g.index[stage.Name()] = len(g.nodes)
	g.nodes = append(g.nodes, Node{Stage: stage, Critical: critical})
	return nil
}

// AddEdge declares that to runs after from.
func (g *Graph) AddEdge(from, to analysis.StageName, kind EdgeKind) error {
	for _, name := range []analysis.StageName{from, to} {
		if _, ok := g.index[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStage, name)
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind})
	return nil
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Upstream returns the edges pointing at name.
func (g *Graph) Upstream(name analysis.StageName) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == name {
			out = append(out, e)
		}
	}
	return out
}

// HasCycle uses DFS to detect cycles.
func (g *Graph) HasCycle() bool {
	visited := make(map[analysis.StageName]bool)
	inStack := make(map[analysis.StageName]bool)

	var dfs func(name analysis.StageName) bool
	dfs = func(name analysis.StageName) bool {
		visited[name] = true
		inStack[name] = true
		for _, e := range g.edges {
			if e.From != name {
				continue
			}
			if !visited[e.To] {
				if dfs(e.To) {
					return true
				}
			} else if inStack[e.To] {
				return true
			}
		}
		inStack[name] = false
		return false
	}

	for _, n := range g.nodes {
		if !visited[n.Stage.Name()] && dfs(n.Stage.Name()) {
			return true
		}
	}
	return false
}

// Validate checks that the graph is acyclic and that every field a stage
// requires is produced by a stage it depends on through hard edges.
func (g *Graph) Validate() error {
	if g.HasCycle() {
		return ErrCyclicGraph
	}
	for _, n := range g.nodes {
		available := analysis.FieldInput | analysis.FieldContext | g.hardAncestorOutputs(n.Stage.Name())
		if missing := available.Missing(n.Stage.Requires()); missing != 0 {
			return &analysis.DependencyError{Stage: n.Stage.Name(), Missing: missing}
		}
	}
	return nil
}

func (g *Graph) hardAncestorOutputs(name analysis.StageName) analysis.FieldSet {
	var out analysis.FieldSet
	seen := make(map[analysis.StageName]bool)
	var walk func(analysis.StageName)
	walk = func(n analysis.StageName) {
		for _, e := range g.Upstream(n) {
			if e.Kind != HardEdge || seen[e.From] {
				continue
			}
			seen[e.From] = true
			out |= g.nodes[g.index[e.From]].Stage.Produces()
			walk(e.From)
		}
	}
	walk(name)
	return out
}

// Levels groups nodes by their longest distance from a root. Every node's
// upstream stages sit in earlier levels; within a level nodes keep
// declaration order.
func (g *Graph) Levels() ([][]Node, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	depth := make(map[analysis.StageName]int, len(g.nodes))
	var visit func(name analysis.StageName) int
	visit = func(name analysis.StageName) int {
		if d, ok := depth[name]; ok {
			return d
		}
		d := 0
		for _, e := range g.Upstream(name) {
			if up := visit(e.From) + 1; up > d {
				d = up
			}
		}
		depth[name] = d
		return d
	}

	maxDepth := 0
	for _, n := range g.nodes {
		if d := visit(n.Stage.Name()); d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]Node, maxDepth+1)
	for _, n := range g.nodes {
		d := depth[n.Stage.Name()]
		levels[d] = append(levels[d], n)
	}
	return levels, nil
}

// NewDefaultGraph wires the six analysis stages:
//
//	rfp_analyzer -> challenge_extractor -> {questions, propositions, case studies} -> proposal_builder
//
// The builder depends softly on the fan-out stages.
func NewDefaultGraph(provider ai.Provider, index analysis.CaseStudyIndex, settings Settings) (*Graph, error) {
	var introProvider ai.Provider
	if settings.ExecutiveIntro {
		introProvider = provider
	}

	g := NewGraph()
	nodes := []Node{
		{Stage: NewRFPAnalyzer(provider, settings.For(analysis.StageRFPAnalyzer)), Critical: true},
		{Stage: NewChallengeExtractor(provider, settings.For(analysis.StageChallengeExtractor)), Critical: true},
		{Stage: NewDiscoveryQuestionGenerator(provider, settings.For(analysis.StageDiscoveryQuestions))},
		{Stage: NewValuePropositionGenerator(provider, settings.For(analysis.StageValuePropositions))},
		{Stage: NewCaseStudyMatcher(index, settings.MatchLimit)},
		{Stage: NewProposalBuilder(introProvider, settings.For(analysis.StageProposalBuilder)), Critical: true},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.Stage, n.Critical); err != nil {
			return nil, err
		}
	}

	edges := []Edge{
		{analysis.StageRFPAnalyzer, analysis.StageChallengeExtractor, HardEdge},
		{analysis.StageChallengeExtractor, analysis.StageDiscoveryQuestions, HardEdge},
		{analysis.StageChallengeExtractor, analysis.StageValuePropositions, HardEdge},
		{analysis.StageChallengeExtractor, analysis.StageCaseStudyMatcher, HardEdge},
		{analysis.StageChallengeExtractor, analysis.StageProposalBuilder, HardEdge},
		{analysis.StageDiscoveryQuestions, analysis.StageProposalBuilder, SoftEdge},
		{analysis.StageValuePropositions, analysis.StageProposalBuilder, SoftEdge},
		{analysis.StageCaseStudyMatcher, analysis.StageProposalBuilder, SoftEdge},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.From, e.To, e.Kind); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
