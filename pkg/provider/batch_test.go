package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type recordingLookuper struct {
	sizes  []int
	failAt int
}

func (r *recordingLookuper) LookupCompanies(_ context.Context, ids []string) ([]Company, error) {
	r.sizes = append(r.sizes, len(ids))
	if r.failAt > 0 && len(r.sizes) == r.failAt {
		return nil, errors.New("boom")
	}
	out := make([]Company, len(ids))
	for i, id := range ids {
		out[i] = Company{ID: id}
	}
	return out, nil
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%010d", i)
	}
	return ids
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{name: "empty", n: 0, size: 10, want: nil},
		{name: "exact", n: 20, size: 10, want: []int{10, 10}},
		{name: "remainder", n: 25, size: 10, want: []int{10, 10, 5}},
		{name: "default size", n: 1001, size: 0, want: []int{1000, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(makeIDs(tt.n), tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunk() returned %d batches, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if len(b) != tt.want[i] {
					t.Errorf("batch %d size = %d, want %d", i, len(b), tt.want[i])
				}
			}
		})
	}
}

func TestLookupAllBatches(t *testing.T) {
	l := &recordingLookuper{}
	companies, err := LookupAll(context.Background(), l, makeIDs(2500), nil)
	if err != nil {
		t.Fatalf("LookupAll() error: %v", err)
	}

	want := []int{1000, 1000, 500}
	if len(l.sizes) != len(want) {
		t.Fatalf("LookupCompanies called %d times, want %d", len(l.sizes), len(want))
	}
	for i := range want {
		if l.sizes[i] != want[i] {
			t.Errorf("call %d batch size = %d, want %d", i, l.sizes[i], want[i])
		}
	}
	if len(companies) != 2500 {
		t.Errorf("LookupAll() returned %d companies, want 2500", len(companies))
	}
}

func TestLookupAllSkipsFailedBatch(t *testing.T) {
	l := &recordingLookuper{failAt: 2}
	companies, err := LookupAll(context.Background(), l, makeIDs(2500), nil)
	if err != nil {
		t.Fatalf("LookupAll() error: %v", err)
	}
	if len(l.sizes) != 3 {
		t.Errorf("LookupCompanies called %d times, want 3", len(l.sizes))
	}
	if len(companies) != 1500 {
		t.Errorf("LookupAll() returned %d companies, want 1500", len(companies))
	}
}

func TestLookupAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &recordingLookuper{}
	_, err := LookupAll(ctx, l, makeIDs(10), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LookupAll() error = %v, want context.Canceled", err)
	}
	if len(l.sizes) != 0 {
		t.Errorf("LookupCompanies called %d times after cancel", len(l.sizes))
	}
}
