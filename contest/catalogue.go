package contest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
	"gopkg.in/yaml.v3"

	"github.com/vegasq/prefcat/expr"
)

var (
	ErrInvalidMode      = errors.New("invalid counting mode")
	ErrEmptyCatalogue   = errors.New("catalogue has no groups")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidName      = errors.New("invalid name")
	ErrReservedName     = errors.New("name is reserved by the expression language")
	ErrCatalogueTooLong = errors.New("catalogue exceeds maximum number of candidates")
)

// MaxCandidates bounds the width of a below-the-line row
const MaxCandidates = 4096

// Group is one column of the ballot paper
type Group struct {
	Name       string   `yaml:"name" json:"name"`
	Candidates []string `yaml:"candidates" json:"candidates"`
}

// Catalogue is the set of groups and candidates contesting one election
type Catalogue struct {
	Name   string  `yaml:"name" json:"name"`
	Groups []Group `yaml:"groups" json:"groups"`

	candidates []string
	members    [][]int

	// name -> number, ordered by name
	groupIndex     *redblacktree.Tree
	candidateIndex *redblacktree.Tree
}

// Load reads a catalogue from a YAML file
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and indexes a YAML catalogue
func Parse(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}
	if err := cat.index(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// New indexes a catalogue built in code
func New(name string, groups ...Group) (*Catalogue, error) {
	cat := &Catalogue{Name: name, Groups: groups}
	if err := cat.index(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalogue) index() error {
	if len(c.Groups) == 0 {
		return ErrEmptyCatalogue
	}

	c.groupIndex = redblacktree.NewWithStringComparator()
	c.candidateIndex = redblacktree.NewWithStringComparator()
	c.candidates = c.candidates[:0]
	c.members = make([][]int, len(c.Groups))

	for g, group := range c.Groups {
		if err := checkName(group.Name); err != nil {
			return fmt.Errorf("group %d: %w", g+1, err)
		}
		if c.taken(group.Name) {
			return fmt.Errorf("%w: group %s", ErrDuplicateName, group.Name)
		}
		c.groupIndex.Put(group.Name, g)

		for _, name := range group.Candidates {
			if err := checkName(name); err != nil {
				return fmt.Errorf("group %s: %w", group.Name, err)
			}
			if c.taken(name) {
				return fmt.Errorf("%w: candidate %s", ErrDuplicateName, name)
			}
			if len(c.candidates) == MaxCandidates {
				return fmt.Errorf("%w (%d)", ErrCatalogueTooLong, MaxCandidates)
			}
			c.candidateIndex.Put(name, len(c.candidates))
			c.members[g] = append(c.members[g], len(c.candidates))
			c.candidates = append(c.candidates, name)
		}
	}
	return nil
}

// taken reports whether name is already a group or a candidate. The two
// share one namespace below the line.
func (c *Catalogue) taken(name string) bool {
	_, group := c.groupIndex.Get(name)
	_, candidate := c.candidateIndex.Get(name)
	return group || candidate
}

// checkName rejects names the expression lexer would not read back as a
// single identifier, and names that collide with reserved identifiers
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		letter := ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
		digit := ch >= '0' && ch <= '9'
		if !letter && !(digit && i > 0) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}

	switch strings.ToLower(name) {
	case "and", "or", "not", "in":
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	switch name {
	case expr.NameNumPrefs, expr.NameExhaust, expr.NameRow, expr.NameCol:
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	if strings.HasPrefix(name, expr.PrefixIndex) || strings.HasPrefix(name, expr.PrefixCount) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	if digits, ok := strings.CutPrefix(name, expr.PrefixPref); ok && digits != "" && strings.Trim(digits, "0123456789") == "" {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return nil
}

// NumCandidates returns the number of candidates across all groups
func (c *Catalogue) NumCandidates() int {
	return len(c.candidates)
}

// Group returns the index of the named group
func (c *Catalogue) Group(name string) (int, bool) {
	v, found := c.groupIndex.Get(name)
	if !found {
		return 0, false
	}
	return v.(int), true
}

// Candidate returns the global number of the named candidate
func (c *Catalogue) Candidate(name string) (int, bool) {
	v, found := c.candidateIndex.Get(name)
	if !found {
		return 0, false
	}
	return v.(int), true
}

// CandidateName returns the name of candidate i
func (c *Catalogue) CandidateName(i int) string {
	return c.candidates[i]
}

// Members returns the candidate numbers of group g in ballot paper order
func (c *Catalogue) Members(g int) []int {
	return c.members[g]
}

// NumEntities returns the width of a ranking in the given mode
func (c *Catalogue) NumEntities(mode Mode) int {
	if mode == BelowTheLine {
		return len(c.candidates)
	}
	return len(c.Groups)
}

// EntityName returns the name of entity e in the given mode. The pseudo
// entity one past the last is exhaust.
func (c *Catalogue) EntityName(mode Mode, e int) string {
	if e == c.NumEntities(mode) {
		return expr.NameExhaust
	}
	if mode == BelowTheLine {
		return c.candidates[e]
	}
	return c.Groups[e].Name
}
