package casestudy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]CaseStudy{
		{ID: "cs-retail", Title: "Retail loyalty", Industry: "Retail", Keywords: []string{"loyalty", "data platform"}},
		{ID: "cs-health", Title: "Clinic scheduling", Industry: "Healthcare", Keywords: []string{"scheduling"}},
		{ID: "cs-health-2", Title: "Hospital data platform", Industry: "healthcare", Keywords: []string{"data platform", "records"}},
		{ID: "cs-none", Title: "Unrelated", Industry: "Mining", Keywords: []string{"ore"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestCatalog_IndustryRestrictsResults(t *testing.T) {
	c := testCatalog(t)
	refs, err := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{
		Industry: "Healthcare",
		Challenges: []analysis.Challenge{
			{Description: "Unify patient records on a shared data platform", Category: "Technology"},
		},
	})
	if err != nil {
		t.Fatalf("MatchCaseStudies: %v", err)
	}

	var ids []string
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	want := []string{"cs-health-2", "cs-health"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if refs[0].Score != IndustryWeight+2 {
		t.Errorf("top score = %d, want %d", refs[0].Score, IndustryWeight+2)
	}
	if !strings.Contains(refs[0].Rationale, "same industry") || !strings.Contains(refs[0].Rationale, "data platform") {
		t.Errorf("Rationale = %q", refs[0].Rationale)
	}
}

func TestCatalog_HealthcareBeatsRetail(t *testing.T) {
	c := DefaultCatalog()
	refs, err := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{
		Industry:   "Healthcare",
		Challenges: []analysis.Challenge{{Description: "Inventory of medical supplies is tracked by hand", Category: "Operations"}},
	})
	if err != nil {
		t.Fatalf("MatchCaseStudies: %v", err)
	}
	if len(refs) == 0 || refs[0].Industry != "Healthcare" {
		t.Fatalf("refs = %+v, want Healthcare first", refs)
	}
	for i, r := range refs {
		if r.Industry == "Retail" && i == 0 {
			t.Error("Retail must not outrank Healthcare")
		}
	}
}

func TestCatalog_HealthcareQueryReturnsOnlyHealthcare(t *testing.T) {
	c, err := NewCatalog([]CaseStudy{
		{ID: "hc", Title: "Patient portal", Industry: "Healthcare", Keywords: []string{"patient"}},
		{ID: "rt", Title: "Store inventory", Industry: "Retail", Keywords: []string{"inventory"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	refs, err := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{
		Industry:   "Healthcare",
		Challenges: []analysis.Challenge{{Description: "Inventory of medical supplies is tracked by hand", Category: "Operations"}},
	})
	if err != nil {
		t.Fatalf("MatchCaseStudies: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "hc" {
		t.Fatalf("refs = %+v, want only hc", refs)
	}
	if refs[0].Score != IndustryWeight {
		t.Errorf("Score = %d, want %d", refs[0].Score, IndustryWeight)
	}
}

func TestCatalog_UncoveredIndustryFallsBackToKeywords(t *testing.T) {
	c := testCatalog(t)
	refs, _ := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{
		Industry:   "Energy",
		Challenges: []analysis.Challenge{{Description: "Build a shared data platform"}},
	})
	var ids []string
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	if want := []string{"cs-health-2", "cs-retail"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestCatalog_ExcludesZeroScores(t *testing.T) {
	c := testCatalog(t)
	refs, _ := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{Industry: "Energy"})
	if len(refs) != 0 {
		t.Errorf("refs = %+v, want none", refs)
	}
}

func TestCatalog_TieBreakByID(t *testing.T) {
	c, _ := NewCatalog([]CaseStudy{
		{ID: "b", Title: "B", Industry: "Retail"},
		{ID: "a", Title: "A", Industry: "Retail"},
	})
	refs, _ := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{Industry: "retail"})
	if len(refs) != 2 || refs[0].ID != "a" || refs[1].ID != "b" {
		t.Errorf("refs = %+v, want a then b", refs)
	}
}

func TestCatalog_Limit(t *testing.T) {
	var studies []CaseStudy
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		studies = append(studies, CaseStudy{ID: id, Title: id, Industry: "Retail"})
	}
	c, _ := NewCatalog(studies)

	refs, _ := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{Industry: "Retail"})
	if len(refs) != DefaultLimit {
		t.Errorf("default limit: got %d, want %d", len(refs), DefaultLimit)
	}
	refs, _ = c.MatchCaseStudies(context.Background(), analysis.MatchQuery{Industry: "Retail", Limit: 2})
	if len(refs) != 2 {
		t.Errorf("limit 2: got %d", len(refs))
	}
}

func TestCatalog_KeywordsMatchWholeWords(t *testing.T) {
	c, _ := NewCatalog([]CaseStudy{{ID: "a", Title: "A", Keywords: []string{"ore"}}})
	refs, _ := c.MatchCaseStudies(context.Background(), analysis.MatchQuery{
		Challenges: []analysis.Challenge{{Description: "More storage is needed"}},
	})
	if len(refs) != 0 {
		t.Errorf("refs = %+v, want none for partial word", refs)
	}
}

func TestCatalog_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testCatalog(t).MatchCaseStudies(ctx, analysis.MatchQuery{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		studies []CaseStudy
	}{
		{"missing id", []CaseStudy{{Title: "x"}}},
		{"missing title", []CaseStudy{{ID: "x"}}},
		{"duplicate", []CaseStudy{{ID: "x", Title: "x"}, {ID: "x", Title: "y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.studies); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("err = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_studies.yaml")
	data := `case_studies:
  - id: cs-1
    title: Hospital EHR
    industry: Healthcare
    keywords: [records, integration]
  - id: cs-2
    title: Store rollout
    industry: Retail
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if got := c.Studies()[0].Keywords; !reflect.DeepEqual(got, []string{"records", "integration"}) {
		t.Errorf("keywords = %v", got)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDefaultCatalog(t *testing.T) {
	if DefaultCatalog().Len() != len(DefaultStudies()) {
		t.Error("Default catalog should hold every default study")
	}
}
