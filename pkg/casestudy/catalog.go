// Package casestudy matches RFP challenges against a catalog of past engagements.
package casestudy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// DefaultLimit caps results when a query sets no limit.
const DefaultLimit = 5

// Scoring weights.
const (
	IndustryWeight = 10
	KeywordWeight  = 1
)

// ErrInvalidCatalog indicates a catalog entry without id or title, or a duplicate id.
var ErrInvalidCatalog = errors.New("invalid case study catalog")

// CaseStudy is one catalog entry.
type CaseStudy struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Industry string   `yaml:"industry" json:"industry"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Summary  string   `yaml:"summary,omitempty" json:"summary,omitempty"`
}

type catalogFile struct {
	CaseStudies []CaseStudy `yaml:"case_studies"`
}

// Catalog is an immutable, in-memory CaseStudyIndex.
type Catalog struct {
	studies []CaseStudy
}

// NewCatalog validates studies and builds a catalog.
func NewCatalog(studies []CaseStudy) (*Catalog, error) {
	seen := make(map[string]bool, len(studies))
	out := make([]CaseStudy, 0, len(studies))
	for i, s := range studies {
		s.ID = strings.TrimSpace(s.ID)
		s.Title = strings.TrimSpace(s.Title)
		if s.ID == "" || s.Title == "" {
			return nil, fmt.Errorf("%w: entry %d needs an id and a title", ErrInvalidCatalog, i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
		s.Keywords = append([]string(nil), s.Keywords...)
		out = append(out, s)
	}
	return &Catalog{studies: out}, nil
}

// ParseCatalog decodes a YAML catalog with a top-level case_studies list.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return NewCatalog(f.CaseStudies)
}

// LoadCatalog reads and parses a YAML catalog file, retrying transient read errors.
func LoadCatalog(path string) (*Catalog, error) {
	retryer := retry.New[[]byte](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})
	data, err := retryer.Do(context.Background(), func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- catalog path comes from operator configuration
		return os.ReadFile(path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.studies)
}

// Studies returns a copy of the entries.
func (c *Catalog) Studies() []CaseStudy {
	return append([]CaseStudy(nil), c.studies...)
}

// MatchCaseStudies scores every entry against q. An equal industry is worth
// IndustryWeight, every keyword found in the challenges KeywordWeight.
// When q names an industry the catalog covers, only entries of that industry
// are returned and keywords rank them. Entries scoring zero are dropped; ties
// are broken by id.
func (c *Catalog) MatchCaseStudies(ctx context.Context, q analysis.MatchQuery) ([]analysis.CaseStudyRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	text := challengeText(q.Challenges)
	industry := strings.ToLower(strings.TrimSpace(q.Industry))

	refs := make([]analysis.CaseStudyRef, 0)
	var sameIndustry []bool
	industryCovered := false
	for _, s := range c.studies {
		score := 0
		var reasons []string

		same := industry != "" && strings.ToLower(strings.TrimSpace(s.Industry)) == industry
		if same {
			industryCovered = true
			score += IndustryWeight
			reasons = append(reasons, "same industry ("+s.Industry+")")
		}

		var hits []string
		for _, kw := range s.Keywords {
			norm := normalize(kw)
			if norm != " " && strings.Contains(text, norm) {
				score += KeywordWeight
				hits = append(hits, strings.TrimSpace(kw))
			}
		}
		if len(hits) > 0 {
			reasons = append(reasons, "keywords: "+strings.Join(hits, ", "))
		}

		if score == 0 {
			continue
		}
		refs = append(refs, analysis.CaseStudyRef{
			ID:        s.ID,
			Title:     s.Title,
			Industry:  s.Industry,
			Rationale: strings.Join(reasons, "; "),
			Score:     score,
		})
		sameIndustry = append(sameIndustry, same)
	}
	if industryCovered {
		kept := refs[:0]
		for i, ref := range refs {
			if sameIndustry[i] {
				kept = append(kept, ref)
			}
		}
		refs = kept
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		return refs[i].ID < refs[j].ID
	})
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// challengeText joins descriptions and categories into one normalized string.
func challengeText(challenges []analysis.Challenge) string {
	parts := make([]string, 0, len(challenges)*2)
	for _, c := range challenges {
		parts = append(parts, c.Description, c.Category)
	}
	return normalize(strings.Join(parts, " "))
}

// normalize lowercases s and reduces it to space-separated word tokens with
// a leading and trailing space, so token runs can be matched with Contains.
func normalize(s string) string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(tokens, " ") + " "
}
