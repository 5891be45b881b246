// Package scripttest provides interpreted fixture projects for tests.
package scripttest

import (
	"lasso.dev/pkg/lasso/internal/model"
)

// Class names of the fixture project.
const (
	PackageClass = "shapes"
	StackClass   = "Stack"
	CounterClass = "Counter"
	SizedClass   = "Sized"
)

const stackSource = `package shapes

import (
	"errors"
	"strings"
)

// ErrEmpty is returned by Pop on an empty stack.
var ErrEmpty = errors.New("empty stack")

type Stack struct {
	items []string
}

func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) Push(item string) string {
	s.items = append(s.items, item)
	return item
}

func (s *Stack) Pop() (string, error) {
	if len(s.items) == 0 {
		return "", ErrEmpty
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, nil
}

func (s *Stack) Size() int {
	return len(s.items)
}

func (s *Stack) Empty() bool {
	return len(s.items) == 0
}

func (s *Stack) Join(sep string) string {
	return strings.Join(s.items, sep)
}

func (s *Stack) Boom() int {
	panic("boom")
}

// Copy duplicates a stack.
func Copy(s *Stack) *Stack {
	return &Stack{items: append([]string(nil), s.items...)}
}
`

const counterSource = `package shapes

type Counter struct {
	n int
}

func (c *Counter) Inc() int {
	c.n = c.n + 1
	return c.n
}

func (c *Counter) AddAll(values ...int) int {
	for _, v := range values {
		c.n = c.n + v
	}
	return c.n
}

func (c *Counter) Reset() {
	c.n = 0
}

var Shared = &Counter{}

type Sized interface {
	Size() int
}

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Describe(s Sized) int {
	return s.Size()
}

func Positive(x int) bool {
	if x > 0 {
		return true
	}
	return false
}

func Sum(items []Sized) int {
	total := 0
	for _, item := range items {
		total = total + item.Size()
	}
	return total
}
`

// Sources returns a fresh copy of the fixture sources.
func Sources() map[string][]byte {
	return map[string][]byte{
		"stack.go":      []byte(stackSource),
		"counter.go":    []byte(counterSource),
		"stack_test.go": []byte("package shapes\n\nimport \"testing\"\n\nfunc TestNothing(t *testing.T) {}\n"),
	}
}

// Project returns an unresolved fixture project without a container.
func Project(artifact string) *model.Project {
	return &model.Project{
		GroupID:    "example.com",
		ArtifactID: artifact,
		Version:    "v1.0.0",
		Root:       model.Path("/fixtures/" + artifact),
		Sources:    Sources(),
	}
}
