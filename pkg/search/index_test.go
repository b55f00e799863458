package search

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/provider/memory"
)

var quiet = log.New(io.Discard)

func sampleIndex() *Index {
	return NewIndex([]provider.Company{
		{ID: "123-45-67890", Name: "가나 제약", CEOName: "김 철수"},
		{ID: "222-22-22222", Name: "Alpha Pharm", CEOName: "Lee"},
		{ID: "333-33-33333", Name: "다라상사", CEOName: "박영희"},
		{ID: "123-45-67890", Name: "duplicate"},
	}, nil)
}

func ids(cs []provider.Company) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestIndexSuggest(t *testing.T) {
	idx := sampleIndex()
	require.Equal(t, 3, idx.Len())

	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"name ignores whitespace", " 가나제 ", []string{"123-45-67890"}},
		{"name case insensitive", "ALPHA p", []string{"222-22-22222"}},
		{"registration number with hyphen", "45-678", []string{"123-45-67890"}},
		{"registration number without hyphen", "4567890", []string{"123-45-67890"}},
		{"ceo name", "철수", []string{"123-45-67890"}},
		{"several matches in index order", "33", []string{"333-33-33333"}},
		{"single rune", "가", nil},
		{"whitespace only", "   ", nil},
		{"no match", "없는업체", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Suggest(tt.keyword)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestIndexCompany(t *testing.T) {
	idx := sampleIndex()
	c, ok := idx.Company("123-45-67890")
	require.True(t, ok)
	assert.Equal(t, "가나 제약", c.Name, "first record wins")

	_, ok = (*Index)(nil).Company("x")
	assert.False(t, ok)
}

func TestSuggestResult(t *testing.T) {
	assert.Equal(t, Result{}, Suggest(nil, "가"))
	assert.Equal(t, Result{Message: MsgLoading}, Suggest(nil, "가나"))
	assert.Equal(t, Result{Message: MsgLoading}, Suggest(NewIndex(nil, nil), "가나"))
	assert.Equal(t, Result{Message: MsgNoMatch}, Suggest(sampleIndex(), "없는업체"))

	var many []provider.Company
	for i := range 30 {
		many = append(many, provider.Company{ID: fmt.Sprintf("id-%02d", i), Name: "업체"})
	}
	res := Suggest(NewIndex(many, nil), "업체")
	assert.Len(t, res.Companies, DisplayLimit)
	assert.Equal(t, 30, res.Total)
	assert.Empty(t, res.Message)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "가나 / 1", Label(provider.Company{ID: "1", Name: "가나"}))
	assert.Equal(t, "가나 / 1 / 김", Label(provider.Company{ID: "1", Name: "가나", CEOName: "김"}))
}

func TestLoad(t *testing.T) {
	ds := memory.Dataset{Pharmacy: provider.Company{ID: "P", Name: "약국"}}
	for i := range 1500 {
		id := fmt.Sprintf("C%04d", i)
		ds.Companies = append(ds.Companies, provider.Company{ID: id, Name: "업체" + id})
		ds.Relations = append(ds.Relations, provider.Relation{ParentID: " P ", ChildID: id})
	}
	p := memory.New(ds)

	idx, err := Load(context.Background(), p, "P", quiet)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Calls("LookupCompanies"), "1501 ids need two batches")
	assert.Equal(t, 1501, idx.Len())
	parent, ok := idx.Ancestors().Parent("C0042")
	require.True(t, ok)
	assert.Equal(t, "P", parent)
	assert.Equal(t, []string{"C0042"}, ids(idx.Suggest("업체C0042")))
}

func TestLoadRelationsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, memory.New(memory.Dataset{}), "P", quiet)
	assert.ErrorIs(t, err, context.Canceled)
}
