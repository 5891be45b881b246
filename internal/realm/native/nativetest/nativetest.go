// Package nativetest provides a realm of small candidate classes for tests.
package nativetest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"lasso.dev/pkg/lasso/internal/realm/native"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// ErrEmpty is returned by Stack.Pop on an empty stack.
var ErrEmpty = errors.New("empty stack")

// Stack is a LIFO stack.
type Stack struct {
	items []any
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push adds x and returns it.
func (s *Stack) Push(x any) any {
	s.items = append(s.items, x)

	return x
}

// Pop removes the top element.
func (s *Stack) Pop() (any, error) {
	if len(s.items) == 0 {
		return nil, ErrEmpty
	}

	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]

	return top, nil
}

// Peek returns the top element or nil.
func (s *Stack) Peek() any {
	if len(s.items) == 0 {
		return nil
	}

	return s.items[len(s.items)-1]
}

// Size returns the number of elements.
func (s *Stack) Size() int {
	return len(s.items)
}

// Deque is a double ended queue without stack vocabulary.
type Deque struct {
	items []any
}

// NewDeque creates an empty deque.
func NewDeque() *Deque {
	return &Deque{}
}

// AddFirst inserts x at the head.
func (d *Deque) AddFirst(x any) {
	d.items = append([]any{x}, d.items...)
}

// RemoveFirst removes the head or returns nil.
func (d *Deque) RemoveFirst() any {
	if len(d.items) == 0 {
		return nil
	}

	head := d.items[0]
	d.items = d.items[1:]

	return head
}

// PeekFirst returns the head or nil.
func (d *Deque) PeekFirst() any {
	if len(d.items) == 0 {
		return nil
	}

	return d.items[0]
}

// Size returns the number of elements.
func (d *Deque) Size() int {
	return len(d.items)
}

// Matrix is a dense row-major matrix.
type Matrix struct {
	data       [][]float64
	rows, cols int
}

// NewMatrix validates the dimensions of data.
func NewMatrix(data [][]float64, rows, cols int) (*Matrix, error) {
	if len(data) != rows {
		return nil, errors.New("row count mismatch")
	}

	return &Matrix{data: data, rows: rows, cols: cols}, nil
}

// Get returns one cell.
func (m *Matrix) Get(row, col int) float64 {
	return m.data[row][col]
}

// Rows returns the row count.
func (m *Matrix) Rows() int {
	return m.rows
}

// Formatter joins labels and numbers.
type Formatter struct {
	prefix string
}

// NewFormatter creates a formatter with a prefix.
func NewFormatter(prefix string) *Formatter {
	return &Formatter{prefix: prefix}
}

// Foo renders label followed by n.
func (f *Formatter) Foo(n int, label string) string {
	return f.prefix + label + strconv.Itoa(n)
}

// Counter only has a default constructor.
type Counter struct {
	n int
}

// NewCounter creates a zero counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int {
	c.n++

	return c.n
}

// Add adds delta and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	c.n += int(delta)

	return int64(c.n)
}

// Config has no constructor; instances come from a factory or a variable.
type Config struct {
	Name string
}

// DefaultConfig is the factory of Config.
func DefaultConfig() *Config {
	return &Config{Name: "default"}
}

// Label returns the config name.
func (c *Config) Label() string {
	return c.Name
}

// GlobalConfig is a shared Config instance.
var GlobalConfig = &Config{Name: "global"}

// Misbehaving panics or blocks on request.
type Misbehaving struct{}

// NewMisbehaving creates a Misbehaving.
func NewMisbehaving() *Misbehaving {
	return &Misbehaving{}
}

// Boom always panics.
func (m *Misbehaving) Boom() int {
	panic("boom")
}

// Sleep blocks for ms milliseconds and returns ms.
func (m *Misbehaving) Sleep(ms int) int {
	time.Sleep(time.Duration(ms) * time.Millisecond)

	return ms
}

// Class names registered by Realm.
const (
	StackClass       = "fixture.Stack"
	DequeClass       = "fixture.Deque"
	MatrixClass      = "fixture.Matrix"
	FormatterClass   = "fixture.Formatter"
	CounterClass     = "fixture.Counter"
	ConfigClass      = "fixture.Config"
	MathClass        = "fixture.MathUtil"
	MisbehavingClass = "fixture.Misbehaving"
	StringsClass     = "fixture.Strings"
)

// Realm registers every fixture class into a fresh realm.
func Realm(name string) (*native.Realm, error) {
	realm := native.New(name)

	registrations := []func() (*typesys.Class, error){
		func() (*typesys.Class, error) {
			return realm.Register(StackClass, (*Stack)(nil), native.Constructor(NewStack))
		},
		func() (*typesys.Class, error) {
			return realm.Register(DequeClass, (*Deque)(nil), native.Constructor(NewDeque))
		},
		func() (*typesys.Class, error) {
			return realm.Register(MatrixClass, (*Matrix)(nil), native.Constructor(NewMatrix))
		},
		func() (*typesys.Class, error) {
			return realm.Register(FormatterClass, (*Formatter)(nil), native.Constructor(NewFormatter))
		},
		func() (*typesys.Class, error) {
			return realm.Register(CounterClass, (*Counter)(nil), native.Constructor(NewCounter))
		},
		func() (*typesys.Class, error) {
			return realm.Register(ConfigClass, (*Config)(nil),
				native.Factory("DefaultConfig", DefaultConfig),
				native.StaticField("GlobalConfig", &GlobalConfig),
			)
		},
		func() (*typesys.Class, error) {
			return realm.Register(MisbehavingClass, (*Misbehaving)(nil), native.Constructor(NewMisbehaving))
		},
		func() (*typesys.Class, error) {
			return realm.Package(MathClass,
				native.Static("Max", func(a, b int) int { return max(a, b) }),
				native.Static("Min", func(a, b int) int { return min(a, b) }),
			)
		},
		func() (*typesys.Class, error) {
			return realm.Package(StringsClass,
				native.Static("Repeat", strings.Repeat),
				native.Static("ToUpper", strings.ToUpper),
			)
		},
	}

	for _, register := range registrations {
		if _, err := register(); err != nil {
			return nil, err
		}
	}

	return realm, nil
}

// MustRealm is Realm for tests that cannot proceed without fixtures.
func MustRealm(name string) *native.Realm {
	realm, err := Realm(name)
	if err != nil {
		panic(err)
	}

	return realm
}
