package model

// MutationType represents the category of mutation.
type MutationType string

const (
	// MutationArithmetic represents arithmetic operator mutations (+, -, *, /, %).
	MutationArithmetic MutationType = "arithmetic"
	// MutationBoolean represents boolean literal mutations (true <-> false).
	MutationBoolean MutationType = "boolean"
	// MutationComparison represents comparison operator mutations (<, <=, >, >=, ==, !=).
	MutationComparison MutationType = "comparison"
)

// Mutation is one source edit of a project file.
type Mutation struct {
	ID           string
	Type         MutationType
	File         Path
	Offset       int
	OriginalText string
	MutatedText  string
	Line         int
	Column       int
}
