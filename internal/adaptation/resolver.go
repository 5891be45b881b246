package adaptation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// DefaultMaxPermutationParams caps the parameter count for which
// reorderings are searched.
const DefaultMaxPermutationParams = 5

// MemberFilter decides which members are considered for a desired name
// before any type matching happens.
type MemberFilter interface {
	Accept(name string, member *typesys.Member, constructor bool) bool
}

// NameFilter keeps methods whose name equals the desired one ignoring
// case. Constructors are never filtered.
type NameFilter struct{}

// Accept implements MemberFilter.
func (NameFilter) Accept(name string, member *typesys.Member, constructor bool) bool {
	return constructor || strings.EqualFold(name, member.Name)
}

// AnyName keeps every member, which makes resolution purely structural.
type AnyName struct{}

// Accept implements MemberFilter.
func (AnyName) Accept(string, *typesys.Member, bool) bool {
	return true
}

// Request is one desired signature to resolve against a class.
type Request struct {
	CUT         model.ClassUnderTest
	Class       *typesys.Class
	Name        string
	Params      []*typesys.Class
	Return      *typesys.Class
	Constructor bool
}

// Match identifies a member bound with one position mapping.
type Match struct {
	Member    string
	Positions string
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Candidates []*Candidate
	Matches    map[Match]bool
	Members    []*typesys.Member
}

// Resolver finds the members of a class that can serve a desired signature.
type Resolver struct {
	Filter               MemberFilter
	MaxPermutationParams int
	Strategies           []MethodStrategy
	Producers            []ProducerStrategy
}

// NewResolver returns a resolver with the name filter, the converter
// strategy and both producer strategies.
func NewResolver() *Resolver {
	return &Resolver{
		Filter:               NameFilter{},
		MaxPermutationParams: DefaultMaxPermutationParams,
		Strategies:           []MethodStrategy{NewConverterStrategy()},
		Producers:            []ProducerStrategy{FactoryMethodProducer{}, StaticFieldProducer{}},
	}
}

// CheckClass rejects classes that can never be adapted. Abstract classes
// are accepted for constructors only.
func CheckClass(cls *typesys.Class, constructor bool) error {
	switch {
	case cls == nil:
		return ErrNilClass
	case cls.IsInterface():
		return fmt.Errorf("%w: %s", ErrInterfaceClass, cls.Name)
	case cls.Abstract && !constructor:
		return fmt.Errorf("%w: %s", ErrAbstractClass, cls.Name)
	}

	return nil
}

// Resolve runs the direct pass, the permutation pass and the strategy
// passes for one desired signature.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if err := CheckClass(req.Class, req.Constructor); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := r.Filter
	if filter == nil {
		filter = NameFilter{}
	}

	maxParams := r.MaxPermutationParams
	if maxParams <= 0 {
		maxParams = DefaultMaxPermutationParams
	}

	var all []*typesys.Member
	if req.Constructor {
		all = req.Class.Constructors
	} else {
		all = req.Class.AllMethods()
	}

	res := &Resolution{Matches: map[Match]bool{}}

	for _, member := range all {
		if filter.Accept(req.Name, member, req.Constructor) {
			res.Members = append(res.Members, member)
		}
	}

	direct := map[*typesys.Member]bool{}

	for _, member := range res.Members {
		positions := identity(len(req.Params))
		if r.fits(req, member, positions) {
			res.add(r.candidate(req, member, positions))
			direct[member] = true
		}
	}

	// Members that fit in declared order are not reordered.
	for _, member := range res.Members {
		if direct[member] || len(member.Params) != len(req.Params) || len(req.Params) < 2 || len(req.Params) > maxParams {
			continue
		}

		for _, positions := range permutations(len(req.Params)) {
			if r.fits(req, member, positions) {
				res.add(r.candidate(req, member, positions))
			}
		}
	}

	for _, strategy := range r.Strategies {
		for _, member := range res.Members {
			if len(member.Params) != len(req.Params) {
				continue
			}

			for _, positions := range r.strategyPositions(len(req.Params), maxParams, direct[member]) {
				for _, c := range safeMatch(strategy, req.Class, req.Return, req.Params, member, positions) {
					r.score(req, c)
					res.add(c)
				}
			}
		}
	}

	if req.Constructor {
		for _, producer := range r.Producers {
			for _, c := range safeProduce(producer, req.Class, req.Params, maxParams) {
				r.score(req, c)
				res.add(c)
			}
		}
	}

	slog.Debug("resolved signature",
		"cut", req.CUT.Key(),
		"name", req.Name,
		"constructor", req.Constructor,
		"members", len(res.Members),
		"candidates", len(res.Candidates))

	return res, nil
}

func (r *Resolver) strategyPositions(n, maxParams int, direct bool) [][]int {
	if direct || n < 2 || n > maxParams {
		return [][]int{identity(n)}
	}

	return permutations(n)
}

func (r *Resolver) fits(req Request, member *typesys.Member, positions []int) bool {
	if len(member.Params) != len(req.Params) {
		return false
	}

	if !fits(req.Params, member.Params, positions) {
		return false
	}

	return req.Constructor || typesys.Assignable(member.Return, req.Return)
}

func (r *Resolver) candidate(req Request, member *typesys.Member, positions []int) *Candidate {
	c := &Candidate{
		Kind:      KindMember,
		Owner:     req.Class,
		Member:    member,
		Positions: positions,
	}

	r.score(req, c)

	return c
}

// score fills the ranking inputs of a candidate.
func (r *Resolver) score(req Request, c *Candidate) {
	c.NameScore = nameScore(req.Name, c, req.Constructor)
	c.Displacement = 0
	c.Cost = 0

	for i, pos := range c.Positions {
		if pos == Dropped {
			continue
		}

		c.Displacement += abs(i - pos)

		if c.Member != nil && pos < len(c.Member.Params) {
			if cost := typesys.Cost(req.Params[i], c.Member.Params[pos]); cost > 0 {
				c.Cost += cost
			}
		}
	}

	if !req.Constructor && c.Member != nil {
		if cost := typesys.Cost(c.Member.Return, req.Return); cost > 0 {
			c.Cost += cost
		}
	}
}

func nameScore(name string, c *Candidate, constructor bool) int {
	if constructor && c.Kind == KindMember {
		return 0
	}

	actual := ""

	switch {
	case c.Member != nil:
		actual = c.Member.Name
	case c.Field != nil:
		actual = c.Field.Name
	}

	switch {
	case actual == name:
		return 0
	case strings.EqualFold(actual, name):
		return 1
	default:
		return 2
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

func (res *Resolution) add(c *Candidate) {
	m := Match{Member: c.Key(), Positions: positionsKey(c.Positions)}
	if res.Matches[m] {
		return
	}

	res.Matches[m] = true
	res.Candidates = append(res.Candidates, c)
}
