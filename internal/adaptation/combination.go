package adaptation

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"slices"
	"strings"
)

const (
	// DefaultMethodMax caps each per-method candidate list.
	DefaultMethodMax = 10
	// DefaultHeadMax is how many candidates of the next method each partial
	// permutation is crossed with.
	DefaultHeadMax = 5
	// DefaultPerMemberMax is how many candidates of the same member survive
	// per desired method.
	DefaultPerMemberMax = 1
)

// ClassPermutation is one complete adaptation choice: ranked constructor
// candidate lists plus one candidate (or nil when unresolved) per desired
// method, in specification order.
type ClassPermutation struct {
	ID           int
	Constructors [][]*Candidate
	Methods      []*Candidate
}

// Fingerprint hashes the selection, so the same adapter found again in a
// later run gets the same value.
func (p *ClassPermutation) Fingerprint() string {
	h := sha256.New()

	for i, list := range p.Constructors {
		h.Write([]byte("c" + positionsKey([]int{i}) + ":"))

		if len(list) > 0 {
			h.Write([]byte(list[0].Identity()))
		}

		h.Write([]byte{0})
	}

	for i, c := range p.Methods {
		h.Write([]byte("m" + positionsKey([]int{i}) + ":"))

		if c != nil {
			h.Write([]byte(c.Identity()))
		}

		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Equal compares selections.
func (p *ClassPermutation) Equal(other *ClassPermutation) bool {
	return other != nil && p.Fingerprint() == other.Fingerprint()
}

// Describe renders one line per slot.
func (p *ClassPermutation) Describe() []string {
	var lines []string

	for i, list := range p.Constructors {
		if len(list) == 0 {
			lines = append(lines, "constructor "+positionsKey([]int{i})+" unresolved")
			continue
		}

		lines = append(lines, "constructor "+positionsKey([]int{i})+" "+list[0].String())
	}

	for i, c := range p.Methods {
		if c == nil {
			lines = append(lines, "method "+positionsKey([]int{i})+" unresolved")
			continue
		}

		lines = append(lines, "method "+positionsKey([]int{i})+" "+c.String())
	}

	return lines
}

// Validator accepts or rejects a whole permutation.
type Validator interface {
	Valid(p *ClassPermutation) bool
}

// ValidatorFunc adapts a predicate to Validator.
type ValidatorFunc func(p *ClassPermutation) bool

// Valid implements Validator.
func (f ValidatorFunc) Valid(p *ClassPermutation) bool {
	return f(p)
}

// CompleteValidator rejects permutations with unresolved methods.
type CompleteValidator struct{}

// Valid implements Validator.
func (CompleteValidator) Valid(p *ClassPermutation) bool {
	return !slices.Contains(p.Methods, nil)
}

// DistinctMethodsValidator rejects permutations that bind two desired
// methods to the same member.
type DistinctMethodsValidator struct{}

// Valid implements Validator.
func (DistinctMethodsValidator) Valid(p *ClassPermutation) bool {
	seen := map[string]bool{}

	for _, c := range p.Methods {
		if c == nil {
			continue
		}

		if seen[c.Key()] {
			return false
		}

		seen[c.Key()] = true
	}

	return true
}

// Combination turns per-method candidate lists into ranked permutations.
type Combination struct {
	MethodMax    int
	HeadMax      int
	PerMemberMax int
	Validators   []Validator
}

// NewCombination returns the engine with default caps and the complete and
// distinct validators.
func NewCombination() *Combination {
	return &Combination{
		MethodMax:    DefaultMethodMax,
		HeadMax:      DefaultHeadMax,
		PerMemberMax: DefaultPerMemberMax,
		Validators:   []Validator{CompleteValidator{}, DistinctMethodsValidator{}},
	}
}

// Combine builds at most limit permutations (limit <= 0 is unbounded).
// Constructor lists are ranked and attached to every permutation.
func (e *Combination) Combine(methods, constructors [][]*Candidate, limit int) []*ClassPermutation {
	methodMax := max(len(methods), e.MethodMax, 1)
	headMax := max(e.HeadMax, 1)
	perMember := max(e.PerMemberMax, 1)

	lists := make([][]*Candidate, len(methods))
	for i, list := range methods {
		lists[i] = limitCountByKey(list, perMember, methodMax)
	}

	ctors := make([][]*Candidate, len(constructors))
	for i, list := range constructors {
		ctors[i] = slices.Clone(list)
		SortCandidates(ctors[i])
	}

	slog.Debug("combining candidates", "methods", len(lists), "raw", RawCount(lists))

	// Bounded requests keep the best partials at every step; unbounded ones
	// keep the full cross of each head.
	width := 0
	if limit > 0 {
		width = max(limit, headMax*headMax)
	}

	partials := [][]*Candidate{{}}

	for i, list := range lists {
		take := headMax
		if i == 0 {
			take = len(list)
		}

		partials = cross(partials, list, take)

		if e.distinct() {
			partials = slices.DeleteFunc(partials, func(partial []*Candidate) bool {
				return !DistinctMethodsValidator{}.Valid(&ClassPermutation{Methods: partial})
			})
		}

		slices.SortStableFunc(partials, comparePartials)

		if width > 0 && len(partials) > width {
			partials = partials[:width]
		}
	}

	var perms []*ClassPermutation

	for _, selection := range partials {
		p := &ClassPermutation{Constructors: ctors, Methods: selection}

		if e.valid(p) {
			perms = append(perms, p)
		}
	}

	slices.SortStableFunc(perms, func(a, b *ClassPermutation) int {
		return comparePartials(a.Methods, b.Methods)
	})

	if limit > 0 && len(perms) > limit {
		perms = perms[:limit]
	}

	for i, p := range perms {
		p.ID = i
	}

	return perms
}

// distinct reports whether repeated members are pruned while crossing.
func (e *Combination) distinct() bool {
	for _, v := range e.Validators {
		if _, ok := v.(DistinctMethodsValidator); ok {
			return true
		}
	}

	return false
}

func (e *Combination) valid(p *ClassPermutation) bool {
	for _, v := range e.Validators {
		if !v.Valid(p) {
			return false
		}
	}

	return true
}

// cross extends every partial with up to take candidates of list, or with
// an unresolved slot when the list is empty. Identical partials are
// dropped.
func cross(partials [][]*Candidate, list []*Candidate, take int) [][]*Candidate {
	if len(list) == 0 {
		out := make([][]*Candidate, len(partials))
		for i, partial := range partials {
			out[i] = append(slices.Clone(partial), nil)
		}

		return out
	}

	head := list[:min(take, len(list))]
	out := make([][]*Candidate, 0, len(partials)*len(head))
	seen := map[string]bool{}

	for _, partial := range partials {
		for _, c := range head {
			next := append(slices.Clone(partial), c)

			key := partialKey(next)
			if seen[key] {
				continue
			}

			seen[key] = true
			out = append(out, next)
		}
	}

	return out
}

func partialKey(partial []*Candidate) string {
	parts := make([]string, len(partial))

	for i, c := range partial {
		if c != nil {
			parts[i] = c.Identity()
		}
	}

	return strings.Join(parts, "\x00")
}

// limitCountByKey sorts a copy of list, keeps at most perKey candidates per
// member and at most total candidates overall.
func limitCountByKey(list []*Candidate, perKey, total int) []*Candidate {
	sorted := slices.Clone(list)
	SortCandidates(sorted)

	counts := map[string]int{}
	out := make([]*Candidate, 0, min(len(sorted), total))

	for _, c := range sorted {
		if len(out) == total {
			break
		}

		if counts[c.Key()] == perKey {
			continue
		}

		counts[c.Key()]++
		out = append(out, c)
	}

	return out
}

// RawCount is the Cartesian size of the non-empty lists, saturating at
// math.MaxInt.
func RawCount(lists [][]*Candidate) int {
	count := 1

	for _, list := range lists {
		n := len(list)
		if n == 0 {
			continue
		}

		if count > math.MaxInt/n {
			return math.MaxInt
		}

		count *= n
	}

	return count
}
