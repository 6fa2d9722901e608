package contest

import (
	"sort"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Kind says what a name refers to
type Kind string

const (
	KindGroup     Kind = "group"
	KindCandidate Kind = "candidate"
)

// Name is one identifier an expression may use
type Name struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Number int    `json:"number"`
	Group  string `json:"group,omitempty"` // candidates only
}

// Names lists the identifiers valid in a mode, sorted by name. Above the
// line only groups are entities; below the line candidates are entities and
// groups are aggregates.
func (c *Catalogue) Names(mode Mode) []Name {
	var names []Name
	appendTree := func(tree *redblacktree.Tree, kind Kind) {
		it := tree.Iterator()
		for it.Next() {
			n := Name{Name: it.Key().(string), Kind: kind, Number: it.Value().(int)}
			if kind == KindCandidate {
				n.Group = c.groupOf(n.Number)
			}
			names = append(names, n)
		}
	}

	appendTree(c.groupIndex, KindGroup)
	if mode == BelowTheLine {
		appendTree(c.candidateIndex, KindCandidate)
	}
	sort.SliceStable(names, func(i, j int) bool { return names[i].Name < names[j].Name })
	return names
}

func (c *Catalogue) groupOf(candidate int) string {
	for g, members := range c.members {
		for _, m := range members {
			if m == candidate {
				return c.Groups[g].Name
			}
		}
	}
	return ""
}

// maxSuggestions caps the list returned by Suggest
const maxSuggestions = 3

// Suggest returns the known names closest to an unknown one, best first.
// An identifier written with an idx_ or count_ prefix is matched on its
// bare name and the prefix is restored on the suggestion.
func (c *Catalogue) Suggest(name string) []string {
	prefix := ""
	for _, p := range []string{"idx_", "count_"} {
		if rest, ok := strings.CutPrefix(name, p); ok {
			prefix, name = p, rest
			break
		}
	}

	type candidate struct {
		name     string
		distance int
	}
	var found []candidate
	limit := max(1, len(name)/3)

	for _, tree := range []*redblacktree.Tree{c.groupIndex, c.candidateIndex} {
		it := tree.Iterator()
		for it.Next() {
			known := it.Key().(string)
			d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(known))
			if d <= limit {
				found = append(found, candidate{known, d})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].name < found[j].name
	})
	if len(found) > maxSuggestions {
		found = found[:maxSuggestions]
	}

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = prefix + f.name
	}
	return out
}
