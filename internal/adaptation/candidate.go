package adaptation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lasso.dev/pkg/lasso/internal/typesys"
)

// CandidateKind tags what a candidate stands for. The order is the ranking
// order: real members first.
type CandidateKind int

const (
	// KindMember is a real constructor or method.
	KindMember CandidateKind = iota
	// KindProducer is an instance source such as a factory method or a
	// static field.
	KindProducer
	// KindStaticInit stands for a class that is never instantiated because
	// it only offers static methods.
	KindStaticInit
)

func (k CandidateKind) String() string {
	switch k {
	case KindMember:
		return "member"
	case KindProducer:
		return "producer"
	case KindStaticInit:
		return "static-init"
	default:
		return "unknown"
	}
}

// Dropped marks a desired parameter that is not passed on to the member.
const Dropped = -1

// Candidate is one member found for a desired signature. Positions[i] is
// the actual parameter position receiving desired argument i.
type Candidate struct {
	Kind   CandidateKind
	Owner  *typesys.Class
	Member *typesys.Member
	Field  *typesys.Field
	// Positions maps desired parameter positions to actual ones.
	Positions []int
	// Conversions holds one entry per desired parameter; nil means none.
	Conversions      []*Converter
	ReturnConversion *Converter
	// Strategy names the method-level strategy that proposed the candidate.
	Strategy string
	// Producer names the producer strategy that proposed the candidate.
	Producer string

	NameScore    int
	Displacement int
	Cost         int
}

// Key identifies the underlying member.
func (c *Candidate) Key() string {
	switch {
	case c.Member != nil:
		return c.Member.Key()
	case c.Field != nil:
		return c.Field.Owner.String() + "." + c.Field.Name
	default:
		return c.Owner.String() + "#<static-init>"
	}
}

// Identity distinguishes candidates of the same member by positions,
// conversions and provenance.
func (c *Candidate) Identity() string {
	var b strings.Builder

	b.WriteString(c.Key())
	b.WriteString("|")
	b.WriteString(positionsKey(c.Positions))
	b.WriteString("|")

	for i, conv := range c.Conversions {
		if conv != nil {
			b.WriteString(strconv.Itoa(i))
			b.WriteString(":")
			b.WriteString(conv.Name)
			b.WriteString(";")
		}
	}

	if c.ReturnConversion != nil {
		b.WriteString("ret:")
		b.WriteString(c.ReturnConversion.Name)
	}

	b.WriteString("|")
	b.WriteString(c.Strategy)
	b.WriteString("|")
	b.WriteString(c.Producer)

	return b.String()
}

// ConversionCount counts argument and result conversions.
func (c *Candidate) ConversionCount() int {
	n := 0

	for _, conv := range c.Conversions {
		if conv != nil {
			n++
		}
	}

	if c.ReturnConversion != nil {
		n++
	}

	return n
}

// Static reports whether the candidate is invoked without a receiver.
func (c *Candidate) Static() bool {
	return c.Kind != KindMember || c.Member.Static || c.Member.Constructor
}

func (c *Candidate) String() string {
	desc := c.Kind.String() + " " + c.Key() + " " + positionsKey(c.Positions)

	if n := c.ConversionCount(); n > 0 {
		desc += fmt.Sprintf(" conversions=%d", n)
	}

	return desc
}

// Invoke calls the member with arguments in desired order. Arguments are
// converted and reordered as recorded during resolution.
func (c *Candidate) Invoke(ctx context.Context, recv any, args []any) (any, error) {
	if len(args) != len(c.Positions) {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrArgumentCount, c.Key(), len(c.Positions), len(args))
	}

	switch c.Kind {
	case KindStaticInit:
		return nil, nil
	case KindProducer:
		if c.Field != nil {
			return c.Field.Get(ctx)
		}
	}

	actual := make([]any, len(c.Member.Params))

	for i, arg := range args {
		pos := c.Positions[i]
		if pos == Dropped {
			continue
		}

		if i < len(c.Conversions) && c.Conversions[i] != nil {
			converted, err := c.Conversions[i].Convert(arg)
			if err != nil {
				return nil, fmt.Errorf("convert argument %d of %s: %w", i, c.Key(), err)
			}

			arg = converted
		}

		actual[pos] = arg
	}

	if c.Static() {
		recv = nil
	}

	result, err := c.Member.Invoke(ctx, recv, actual)
	if err != nil {
		return nil, err
	}

	if c.ReturnConversion != nil {
		converted, err := c.ReturnConversion.Convert(result)
		if err != nil {
			return nil, fmt.Errorf("convert result of %s: %w", c.Key(), err)
		}

		return converted, nil
	}

	return result, nil
}

func positionsKey(positions []int) string {
	parts := make([]string, len(positions))
	for i, pos := range positions {
		parts[i] = strconv.Itoa(pos)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

func identity(n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}

	return positions
}
