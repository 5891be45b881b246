// Package arena runs adapted implementations of candidate classes against
// sequence specifications under a bounded worker pool.
package arena

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"lasso.dev/pkg/lasso/internal/sequence"
)

var validate = validator.New()

// Config is passed to NewExecutor; nothing in the arena reads process-wide
// settings.
type Config struct {
	// Threads bounds the number of concurrent CUT tasks.
	Threads int `validate:"gte=1,lte=1024"`
	// AdaptationLimit caps adapters per CUT; zero means unbounded.
	AdaptationLimit int `validate:"gte=0"`
	// StatementTimeout bounds each reflective call.
	StatementTimeout time.Duration `validate:"gte=0"`
	// RunID tags every report of an execution.
	RunID string `validate:"omitempty,uuid"`
	// SpillDir holds temporary mutant results; empty means the OS default.
	SpillDir string
}

// DefaultConfig uses half of the available CPUs.
func DefaultConfig() Config {
	return Config{
		Threads:          max(runtime.NumCPU()/2, 1),
		AdaptationLimit:  10,
		StatementTimeout: sequence.DefaultTimeout,
	}
}

// Validate checks the field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid arena config: %w", err)
	}

	return nil
}

// EnsureDefaults fills zero values.
func (c *Config) EnsureDefaults() {
	if c.Threads == 0 {
		c.Threads = DefaultConfig().Threads
	}

	if c.StatementTimeout == 0 {
		c.StatementTimeout = sequence.DefaultTimeout
	}

	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
}
