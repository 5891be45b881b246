package adaptation

import (
	"fmt"
	"log/slog"
	"strconv"

	"lasso.dev/pkg/lasso/internal/typesys"
)

// Converter converts a runtime value between two classes.
type Converter struct {
	Name    string
	Accepts func(src, dst *typesys.Class) bool
	Convert func(value any) (any, error)
}

func named(src, dst string) func(s, d *typesys.Class) bool {
	return func(s, d *typesys.Class) bool {
		return s.Name == src && d.Name == dst
	}
}

func parseInt(bits int) func(any) (any, error) {
	return func(value any) (any, error) {
		n, err := strconv.ParseInt(fmt.Sprint(value), 10, bits)
		if err != nil {
			return nil, err
		}

		if bits == 0 {
			return int(n), nil
		}

		return n, nil
	}
}

func sprint(value any) (any, error) {
	if value == nil {
		return "", nil
	}

	return fmt.Sprint(value), nil
}

// DefaultConverters is the converter table of ConverterStrategy.
var DefaultConverters = []*Converter{
	{Name: "string->int", Accepts: named("string", "int"), Convert: parseInt(0)},
	{Name: "string->int64", Accepts: named("string", "int64"), Convert: parseInt(64)},
	{Name: "string->float64", Accepts: named("string", "float64"), Convert: func(value any) (any, error) {
		return strconv.ParseFloat(fmt.Sprint(value), 64)
	}},
	{Name: "string->bool", Accepts: named("string", "bool"), Convert: func(value any) (any, error) {
		return strconv.ParseBool(fmt.Sprint(value))
	}},
	{Name: "number->string", Accepts: func(s, d *typesys.Class) bool {
		return d.Name == "string" && (typesys.IsNumeric(s) || s.Name == "bool")
	}, Convert: sprint},
	{Name: "any->string", Accepts: func(s, d *typesys.Class) bool {
		return d.Name == "string" && s.Kind == typesys.KindAny
	}, Convert: sprint},
}

// MethodStrategy proposes candidates for a member that the structural pass
// may have rejected. positions is the reordering under test.
type MethodStrategy interface {
	Name() string
	Match(cls *typesys.Class, ret *typesys.Class, params []*typesys.Class, member *typesys.Member, positions []int) []*Candidate
}

// ConverterStrategy bridges incompatible parameter and result types with
// runtime converters.
type ConverterStrategy struct {
	Converters []*Converter
}

// NewConverterStrategy uses DefaultConverters.
func NewConverterStrategy() *ConverterStrategy {
	return &ConverterStrategy{Converters: DefaultConverters}
}

// Name implements MethodStrategy.
func (s *ConverterStrategy) Name() string {
	return "converter"
}

// Match implements MethodStrategy. It only proposes candidates that need at
// least one conversion.
func (s *ConverterStrategy) Match(cls *typesys.Class, ret *typesys.Class, params []*typesys.Class, member *typesys.Member, positions []int) []*Candidate {
	if len(member.Params) != len(params) {
		return nil
	}

	conversions := make([]*Converter, len(params))
	converted := false

	for i, desired := range params {
		actual := member.Params[positions[i]]
		if typesys.Assignable(desired, actual) {
			continue
		}

		conv := s.find(desired, actual)
		if conv == nil {
			return nil
		}

		conversions[i] = conv
		converted = true
	}

	var retConv *Converter

	if !member.Constructor && !typesys.Assignable(member.Return, ret) {
		if member.Return.IsVoid() {
			return nil
		}

		retConv = s.find(member.Return, ret)
		if retConv == nil {
			return nil
		}

		converted = true
	}

	if !converted {
		return nil
	}

	return []*Candidate{{
		Kind:             KindMember,
		Owner:            cls,
		Member:           member,
		Positions:        positions,
		Conversions:      conversions,
		ReturnConversion: retConv,
		Strategy:         s.Name(),
	}}
}

func (s *ConverterStrategy) find(src, dst *typesys.Class) *Converter {
	for _, conv := range s.Converters {
		if conv.Accepts(src, dst) {
			return conv
		}
	}

	return nil
}

// ProducerStrategy proposes instance sources other than constructors.
type ProducerStrategy interface {
	Name() string
	Produce(cls *typesys.Class, params []*typesys.Class, maxPermutationParams int) []*Candidate
}

// FactoryMethodProducer uses static methods returning the class.
type FactoryMethodProducer struct{}

// Name implements ProducerStrategy.
func (FactoryMethodProducer) Name() string {
	return "factory-method"
}

// Produce implements ProducerStrategy.
func (p FactoryMethodProducer) Produce(cls *typesys.Class, params []*typesys.Class, maxPermutationParams int) []*Candidate {
	var candidates []*Candidate

	for _, method := range cls.Methods {
		if !method.Static || method.Return.IsVoid() || typesys.Cost(method.Return, cls) != 0 && !typesys.Subtype(method.Return, cls) {
			continue
		}

		for _, positions := range matchPositions(params, method.Params, maxPermutationParams) {
			candidates = append(candidates, &Candidate{
				Kind:      KindProducer,
				Owner:     cls,
				Member:    method,
				Positions: positions,
				Producer:  p.Name(),
			})
		}
	}

	return candidates
}

// StaticFieldProducer uses static fields holding an instance of the class.
// Fields take no arguments, so it only serves no-argument initializers.
type StaticFieldProducer struct{}

// Name implements ProducerStrategy.
func (StaticFieldProducer) Name() string {
	return "static-field"
}

// Produce implements ProducerStrategy.
func (p StaticFieldProducer) Produce(cls *typesys.Class, params []*typesys.Class, _ int) []*Candidate {
	if len(params) > 0 {
		return nil
	}

	var candidates []*Candidate

	for _, field := range cls.Fields {
		if !field.Static || field.Visibility == typesys.Private || field.Get == nil {
			continue
		}

		if typesys.Cost(field.Type, cls) != 0 && !typesys.Subtype(field.Type, cls) {
			continue
		}

		candidates = append(candidates, &Candidate{
			Kind:      KindProducer,
			Owner:     cls,
			Field:     field,
			Positions: []int{},
			Producer:  p.Name(),
		})
	}

	return candidates
}

// matchPositions returns the identity mapping if it fits, otherwise every
// permutation that fits.
func matchPositions(desired, actual []*typesys.Class, maxPermutationParams int) [][]int {
	if len(desired) != len(actual) {
		return nil
	}

	if fits(desired, actual, identity(len(desired))) {
		return [][]int{identity(len(desired))}
	}

	if len(desired) < 2 || len(desired) > maxPermutationParams {
		return nil
	}

	var matches [][]int

	for _, positions := range permutations(len(desired)) {
		if fits(desired, actual, positions) {
			matches = append(matches, positions)
		}
	}

	return matches
}

func fits(desired, actual []*typesys.Class, positions []int) bool {
	for i, typ := range desired {
		if !typesys.Assignable(typ, actual[positions[i]]) {
			return false
		}
	}

	return true
}

// permutations lists all orderings of 0..n-1 in lexicographic order.
func permutations(n int) [][]int {
	var out [][]int

	current := identity(n)
	for {
		out = append(out, append([]int(nil), current...))

		i := n - 2
		for i >= 0 && current[i] >= current[i+1] {
			i--
		}

		if i < 0 {
			return out
		}

		j := n - 1
		for current[j] <= current[i] {
			j--
		}

		current[i], current[j] = current[j], current[i]

		for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
			current[l], current[r] = current[r], current[l]
		}
	}
}

func safeMatch(strategy MethodStrategy, cls, ret *typesys.Class, params []*typesys.Class, member *typesys.Member, positions []int) (candidates []*Candidate) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("adaptation strategy failed", "strategy", strategy.Name(), "member", member.Key(), "panic", rec)

			candidates = nil
		}
	}()

	return strategy.Match(cls, ret, params, member, positions)
}

func safeProduce(producer ProducerStrategy, cls *typesys.Class, params []*typesys.Class, maxPermutationParams int) (candidates []*Candidate) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("producer strategy failed", "producer", producer.Name(), "class", cls.Name, "panic", rec)

			candidates = nil
		}
	}()

	return producer.Produce(cls, params, maxPermutationParams)
}
