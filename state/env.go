// Package state keeps program state shared by commands.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"inlinesvg/config"
)

type envKey struct{}

// LocalEnv is attached to the command context before any command runs.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report // nil unless debug report was requested
	Log *zap.Logger

	// optimize command flags
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding // forced code page for non UTF-8 names in archives
	Patterns  []string          // data URI patterns overriding configured ones

	start         time.Time
	restoreStdLog func()
}

// ContextWithEnv returns context carrying fresh LocalEnv.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// EnvFromContext panics when context was not prepared with ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program state is missing from context")
	}
	return env
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RedirectStdLog sends output of standard library logger to Log at info
// level. Some of our dependencies still use it.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil {
		e.restoreStdLog = zap.RedirectStdLog(e.Log)
	}
}

// RestoreStdLog flushes Log and undoes RedirectStdLog.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if restore := e.restoreStdLog; restore != nil {
		e.restoreStdLog = nil
		restore()
	}
}
