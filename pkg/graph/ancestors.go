package graph

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/contractmap/pkg/provider"
)

// Ancestors maps a child id to its single parent id.
type Ancestors struct {
	parent map[string]string
	ids    []string
}

// BuildAncestors indexes relation records. Ids are trimmed; records with an
// empty endpoint or a self-loop are skipped. A child listed under more than
// one parent keeps the last parent seen.
func BuildAncestors(rels []provider.Relation, logger *log.Logger) *Ancestors {
	if logger == nil {
		logger = log.Default()
	}
	a := &Ancestors{parent: make(map[string]string, len(rels))}
	seen := make(map[string]struct{}, len(rels)*2)
	track := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			a.ids = append(a.ids, id)
		}
	}

	for _, r := range rels {
		parent := strings.TrimSpace(r.ParentID)
		child := strings.TrimSpace(r.ChildID)
		if parent == "" || child == "" {
			logger.Debug("skipping relation with empty endpoint", "parent", r.ParentID, "child", r.ChildID)
			continue
		}
		if parent == child {
			logger.Warn("skipping self relation", "id", parent)
			continue
		}
		track(parent)
		track(child)
		if prev, ok := a.parent[child]; ok && prev != parent {
			logger.Debug("child has multiple parents, keeping last", "child", child, "previous", prev, "parent", parent)
		}
		a.parent[child] = parent
	}
	return a
}

// Parent returns the recorded parent of id.
func (a *Ancestors) Parent(id string) (string, bool) {
	if a == nil {
		return "", false
	}
	p, ok := a.parent[id]
	return p, ok
}

// Len returns the number of children with a recorded parent.
func (a *Ancestors) Len() int {
	if a == nil {
		return 0
	}
	return len(a.parent)
}

// IDs returns every distinct id participating in a relation, in first-seen order.
func (a *Ancestors) IDs() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.ids))
	copy(out, a.ids)
	return out
}
