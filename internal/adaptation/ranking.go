package adaptation

import (
	"cmp"
	"slices"
	"strings"
)

// compareCandidates orders candidates by
// (NameScore, Kind, conversions, Displacement, Cost, member index, key,
// positions, identity). The last component makes the order total.
func compareCandidates(a, b *Candidate) int {
	if c := cmp.Compare(a.NameScore, b.NameScore); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}

	if c := cmp.Compare(a.ConversionCount(), b.ConversionCount()); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Displacement, b.Displacement); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Cost, b.Cost); c != 0 {
		return c
	}

	if c := cmp.Compare(memberIndex(a), memberIndex(b)); c != 0 {
		return c
	}

	if c := strings.Compare(a.Key(), b.Key()); c != 0 {
		return c
	}

	if c := slices.Compare(a.Positions, b.Positions); c != 0 {
		return c
	}

	return strings.Compare(a.Identity(), b.Identity())
}

func memberIndex(c *Candidate) int {
	if c.Member != nil {
		return c.Member.Index
	}

	return -1
}

// SortCandidates sorts a candidate list in ranking order.
func SortCandidates(candidates []*Candidate) {
	slices.SortStableFunc(candidates, compareCandidates)
}

type partialScore struct {
	unresolved   int
	nameScore    int
	kind         int
	conversions  int
	displacement int
	cost         int
}

func scoreOf(methods []*Candidate) partialScore {
	var s partialScore

	for _, c := range methods {
		if c == nil {
			s.unresolved++
			continue
		}

		s.nameScore += c.NameScore
		s.kind += int(c.Kind)
		s.conversions += c.ConversionCount()
		s.displacement += c.Displacement
		s.cost += c.Cost
	}

	return s
}

// comparePartials orders method selections by summed ranking components,
// then lexicographically by candidate. Unresolved slots rank last.
func comparePartials(a, b []*Candidate) int {
	sa, sb := scoreOf(a), scoreOf(b)

	for _, c := range []int{
		cmp.Compare(sa.unresolved, sb.unresolved),
		cmp.Compare(sa.nameScore, sb.nameScore),
		cmp.Compare(sa.kind, sb.kind),
		cmp.Compare(sa.conversions, sb.conversions),
		cmp.Compare(sa.displacement, sb.displacement),
		cmp.Compare(sa.cost, sb.cost),
	} {
		if c != 0 {
			return c
		}
	}

	for i := range min(len(a), len(b)) {
		switch {
		case a[i] == nil && b[i] == nil:
			continue
		case a[i] == nil:
			return 1
		case b[i] == nil:
			return -1
		}

		if c := compareCandidates(a[i], b[i]); c != 0 {
			return c
		}
	}

	return cmp.Compare(len(a), len(b))
}
