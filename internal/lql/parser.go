// Package lql parses interface specifications written in the query
// language:
//
//	Stack {
//	    Stack()
//	    push(Object)->Object
//	    static max(int,int)->int
//	}
//
// Members named like the interface are constructors. A member without a
// result type returns void.
package lql

import (
	"errors"
	"fmt"
	"strings"
	"text/scanner"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("lql syntax error")

// Parse reads one interface specification.
func Parse(text string) (*model.InterfaceSpecification, error) {
	p := newParser(text)

	spec, err := p.parse()
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(text string) *model.InterfaceSpecification {
	spec, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return spec
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func newParser(text string) *parser {
	p := &parser{}
	p.s.Init(strings.NewReader(text))
	p.s.Filename = "query"
	p.s.Mode = scanner.ScanIdents | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: %s: %s", ErrSyntax, s.Position, msg)
		}
	}
	p.next()

	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}

	return fmt.Errorf("%w: %s: %s", ErrSyntax, p.s.Position, fmt.Sprintf(format, args...))
}

func (p *parser) expect(tok rune) error {
	if p.tok != tok {
		return p.errorf("expected %s, found %s", scanner.TokenString(tok), p.describe())
	}

	p.next()

	return nil
}

func (p *parser) describe() string {
	if p.tok == scanner.EOF {
		return "end of query"
	}

	return fmt.Sprintf("%q", p.s.TokenText())
}

func (p *parser) parse() (*model.InterfaceSpecification, error) {
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}

	if err := p.expect('{'); err != nil {
		return nil, err
	}

	simple := name
	if i := strings.LastIndex(simple, "."); i >= 0 {
		simple = simple[i+1:]
	}

	var constructors, methods []model.MethodSignature

	for p.tok != '}' {
		if p.tok == ';' || p.tok == ',' {
			p.next()
			continue
		}

		if p.tok == scanner.EOF {
			return nil, p.errorf("missing closing brace")
		}

		sig, err := p.member(name)
		if err != nil {
			return nil, err
		}

		if sig.Name == simple || sig.Name == model.ConstructorName {
			if sig.Static {
				return nil, p.errorf("constructor %s cannot be static", sig.Name)
			}

			sig.Return = name
			constructors = append(constructors, sig)

			continue
		}

		methods = append(methods, sig)
	}

	p.next()

	if p.tok != scanner.EOF {
		return nil, p.errorf("unexpected %s after interface", p.describe())
	}

	if p.err != nil {
		return nil, p.err
	}

	return model.NewInterfaceSpecification(name, constructors, methods), nil
}

func (p *parser) member(owner string) (model.MethodSignature, error) {
	sig := model.MethodSignature{Owner: owner, Return: "void"}

	if p.tok == '<' {
		// <init>
		p.next()

		if p.tok != scanner.Ident || p.s.TokenText() != "init" {
			return sig, p.errorf("expected <init>, found %s", p.describe())
		}

		p.next()

		if err := p.expect('>'); err != nil {
			return sig, err
		}

		sig.Name = model.ConstructorName
	} else {
		if p.tok != scanner.Ident {
			return sig, p.errorf("expected member name, found %s", p.describe())
		}

		sig.Name = p.s.TokenText()
		p.next()

		if sig.Name == "static" && p.tok == scanner.Ident {
			sig.Static = true
			sig.Name = p.s.TokenText()
			p.next()
		}
	}

	if err := p.expect('('); err != nil {
		return sig, err
	}

	for p.tok != ')' {
		typ, err := p.typeName()
		if err != nil {
			return sig, err
		}

		sig.Params = append(sig.Params, typ)

		if p.tok == ',' {
			p.next()
			continue
		}

		if p.tok != ')' {
			return sig, p.errorf("expected , or ) in parameter list, found %s", p.describe())
		}
	}

	p.next()

	if p.tok == '-' {
		p.next()

		if err := p.expect('>'); err != nil {
			return sig, err
		}

		typ, err := p.typeName()
		if err != nil {
			return sig, err
		}

		sig.Return = typ
	}

	return sig, nil
}

func (p *parser) qualifiedName() (string, error) {
	if p.tok != scanner.Ident {
		return "", p.errorf("expected name, found %s", p.describe())
	}

	var b strings.Builder

	b.WriteString(p.s.TokenText())
	p.next()

	for p.tok == '.' {
		p.next()

		if p.tok != scanner.Ident {
			return "", p.errorf("expected name after '.', found %s", p.describe())
		}

		b.WriteString(".")
		b.WriteString(p.s.TokenText())
		p.next()
	}

	return b.String(), nil
}

// typeName accepts Go and Java spellings: *T, []T, T[], pkg.T, interface{}.
func (p *parser) typeName() (string, error) {
	var prefix strings.Builder

	for {
		switch p.tok {
		case '*':
			prefix.WriteString("*")
			p.next()

			continue
		case '[':
			p.next()

			if err := p.expect(']'); err != nil {
				return "", err
			}

			prefix.WriteString("[]")

			continue
		}

		break
	}

	name, err := p.qualifiedName()
	if err != nil {
		return "", err
	}

	if name == "interface" && p.tok == '{' {
		p.next()

		if err := p.expect('}'); err != nil {
			return "", err
		}

		name = "interface{}"
	}

	var suffix strings.Builder

	for p.tok == '[' {
		p.next()

		if err := p.expect(']'); err != nil {
			return "", err
		}

		suffix.WriteString("[]")
	}

	return typesys.NormalizeName(prefix.String() + name + suffix.String()), nil
}
