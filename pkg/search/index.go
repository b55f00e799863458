package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/provider"
)

const (
	// MinKeywordLen is the shortest normalized keyword that is matched.
	MinKeywordLen = 2

	// DisplayLimit caps the suggestions presented to the user.
	DisplayLimit = 20
)

// Messages shown in place of suggestions.
const (
	MsgLoading = "검색 데이터가 준비 중입니다."
	MsgNoMatch = "일치하는 업체가 없습니다."
)

type entry struct {
	name  string
	bizNo string
	ceo   string
}

// Index is an immutable, normalized list of searchable companies.
type Index struct {
	companies []provider.Company
	entries   []entry
	byID      map[string]int
	ancestors *graph.Ancestors
}

// Load fetches the pharmacy's relations and resolves every participating
// company. A failed lookup batch is logged and skipped; a failed relation
// fetch is returned.
func Load(ctx context.Context, p provider.Provider, pharmacyID string, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.Default()
	}
	rels, err := p.Relations(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}

	ids := participants(rels)
	companies, err := provider.LookupAll(ctx, p, ids, logger)
	if err != nil {
		return nil, fmt.Errorf("lookup companies: %w", err)
	}

	idx := NewIndex(companies, graph.BuildAncestors(rels, logger))
	logger.Debug("search index loaded", "relations", len(rels), "ids", len(ids), "companies", idx.Len())
	return idx, nil
}

func participants(rels []provider.Relation) []string {
	seen := make(map[string]struct{}, len(rels)*2)
	ids := make([]string, 0, len(rels)*2)
	for _, r := range rels {
		for _, id := range [2]string{r.ParentID, r.ChildID} {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// NewIndex builds an index over companies. Duplicate ids keep the first record.
func NewIndex(companies []provider.Company, anc *graph.Ancestors) *Index {
	idx := &Index{
		companies: make([]provider.Company, 0, len(companies)),
		entries:   make([]entry, 0, len(companies)),
		byID:      make(map[string]int, len(companies)),
		ancestors: anc,
	}
	for _, c := range companies {
		if _, dup := idx.byID[c.ID]; dup || c.ID == "" {
			continue
		}
		idx.byID[c.ID] = len(idx.companies)
		idx.companies = append(idx.companies, c)
		idx.entries = append(idx.entries, entry{
			name:  Normalize(c.Name),
			bizNo: strings.ReplaceAll(c.ID, "-", ""),
			ceo:   Normalize(c.CEOName),
		})
	}
	return idx
}

// Len returns the number of indexed companies. A nil index is empty.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.companies)
}

// Ancestors returns the child-to-parent map built from the same relations.
func (idx *Index) Ancestors() *graph.Ancestors {
	if idx == nil {
		return nil
	}
	return idx.ancestors
}

// Company returns the indexed record for id.
func (idx *Index) Company(id string) (provider.Company, bool) {
	if idx == nil {
		return provider.Company{}, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return provider.Company{}, false
	}
	return idx.companies[i], true
}

// Suggest returns every company matching keyword, in index order.
// Keywords shorter than MinKeywordLen runes after normalization match nothing.
func (idx *Index) Suggest(keyword string) []provider.Company {
	kw := Normalize(keyword)
	if idx == nil || utf8.RuneCountInString(kw) < MinKeywordLen {
		return nil
	}
	bizKw := strings.ReplaceAll(kw, "-", "")

	var out []provider.Company
	for i, e := range idx.entries {
		if strings.Contains(e.name, kw) ||
			(bizKw != "" && strings.Contains(e.bizNo, bizKw)) ||
			strings.Contains(e.ceo, kw) {
			out = append(out, idx.companies[i])
		}
	}
	return out
}

// Normalize lowercases s and removes all whitespace.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Result is a presentable suggestion list.
type Result struct {
	Companies []provider.Company `json:"companies"`
	Total     int                `json:"total"`
	Message   string             `json:"message,omitempty"`
}

// Suggest matches keyword against idx and prepares it for display: at most
// DisplayLimit companies, or a message when the index is not ready or
// nothing matched. Keywords below MinKeywordLen yield an empty result.
func Suggest(idx *Index, keyword string) Result {
	if utf8.RuneCountInString(Normalize(keyword)) < MinKeywordLen {
		return Result{}
	}
	if idx.Len() == 0 {
		return Result{Message: MsgLoading}
	}
	matches := idx.Suggest(keyword)
	if len(matches) == 0 {
		return Result{Message: MsgNoMatch}
	}
	return Result{Companies: matches[:min(len(matches), DisplayLimit)], Total: len(matches)}
}

// Label formats a suggestion line: "name / id" plus " / ceo" when known.
func Label(c provider.Company) string {
	if c.CEOName == "" {
		return c.Name + " / " + c.ID
	}
	return c.Name + " / " + c.ID + " / " + c.CEOName
}
