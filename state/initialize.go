package state

import (
	"errors"
	"time"

	"inlinesvg/optimize"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// Processor builds stylesheet processor from current configuration. Patterns
// requested on command line take precedence over configured ones.
func (e *LocalEnv) Processor() (*optimize.Processor, error) {
	if e.Cfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	return e.Cfg.Optimizer.Prepare(e.Log, e.Patterns...)
}
