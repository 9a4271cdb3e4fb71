// Package optimize rewrites SVG images embedded into stylesheet declarations
// as data URIs, replacing them with optimized and re-encoded versions.
package optimize

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"inlinesvg/common"
	"inlinesvg/css"
	"inlinesvg/datauri"
	"inlinesvg/utils/images"
)

// Name identifies the transform in error messages.
const Name = "inline-svg"

// Options control single Processor.
type Options struct {
	Patterns    datauri.Patterns   // data URI preambles, datauri.Default() when empty
	Workers     int                // limit of concurrent optimizer calls per pass, 0 means no limit
	ErrorPolicy common.ErrorPolicy // what happens to other declarations when optimizer fails
}

// Option modifies Options.
type Option func(*Options)

// WithPatterns sets data URI patterns.
func WithPatterns(p datauri.Patterns) Option {
	return func(o *Options) {
		o.Patterns = p
	}
}

// WithWorkers limits number of concurrent optimizer calls.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithErrorPolicy sets error policy.
func WithErrorPolicy(policy common.ErrorPolicy) Option {
	return func(o *Options) {
		o.ErrorPolicy = policy
	}
}

// Processor finds SVG data URIs in stylesheet declarations and replaces them
// with optimized ones. It holds no per-pass state and may be used by many
// goroutines at once.
type Processor struct {
	opt  Optimizer
	opts Options
	log  *zap.Logger

	committed func(decl *css.Declaration) // called after declaration value is written
}

// New creates Processor using opt for SVG optimization.
func New(opt Optimizer, log *zap.Logger, options ...Option) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Processor{
		opt: opt,
		opts: Options{
			ErrorPolicy: common.ErrorPolicyFailFast,
		},
		log: log.Named("optimize"),
	}
	for _, o := range options {
		o(&p.opts)
	}
	if len(p.opts.Patterns) == 0 {
		p.opts.Patterns = datauri.Default()
	}
	if p.opts.Workers < 0 {
		p.opts.Workers = 0
	}
	return p
}

// target is a single url() node scheduled for optimization.
type target struct {
	fn      *css.Node
	svg     string
	encoded bool
	result  string
}

// job is a declaration with all its scheduled url() nodes.
type job struct {
	decl    *css.Declaration
	tree    *css.ValueTree
	targets []*target
}

// commit puts optimized payloads into the value tree and writes it back.
func (j *job) commit(c *counters) {
	if len(j.targets) == 0 {
		return
	}
	for _, t := range j.targets {
		quote := byte('\'')
		if t.encoded {
			quote = '"'
		}
		t.fn.SetPayload(datauri.Prefix+t.result, quote)
		c.nodes.Add(1)
		c.bytesIn.Add(int64(len(t.svg)))
		c.bytesOut.Add(int64(len(t.result)))
	}
	j.decl.Value = j.tree.String()
}

// pass is state of a single Process call.
type pass struct {
	*Processor
	sem   *semaphore.Weighted
	stats counters
}

// Process rewrites all SVG data URIs in the stylesheet. On failure error is
// returned and, with fail-fast policy, declarations which were already
// finished keep their new values. With atomic policy stylesheet is left
// unchanged and all optimizer errors are returned.
func (p *Processor) Process(ctx context.Context, sheet *css.Stylesheet) (Stats, error) {
	ps := &pass{Processor: p}
	if p.opts.Workers > 0 {
		ps.sem = semaphore.NewWeighted(int64(p.opts.Workers))
	}

	var jobs []*job
	for _, decl := range sheet.Declarations() {
		if !p.opts.Patterns.Match(decl.Value) {
			continue
		}
		ps.stats.declarations.Add(1)
		jobs = append(jobs, ps.plan(decl))
	}

	var err error
	if p.opts.ErrorPolicy.Atomic() {
		err = ps.runAtomic(ctx, jobs)
	} else {
		err = ps.runFailFast(ctx, jobs)
	}

	stats := ps.stats.snapshot()
	if err != nil {
		p.log.Debug("Pass failed", zap.Object("stats", stats), zap.Error(err))
		return stats, err
	}
	p.log.Debug("Pass completed", zap.Object("stats", stats))
	return stats, nil
}

// ProcessCSS parses stylesheet text, rewrites it and returns resulting text.
// Text is returned even on failure, it reflects whatever the error policy
// allowed to be written.
func (p *Processor) ProcessCSS(ctx context.Context, data []byte, source string) ([]byte, Stats, error) {
	sheet := css.NewParser(p.log).Parse(data, source)
	for _, w := range sheet.Warnings {
		p.log.Debug("Stylesheet problem", zap.String("source", source), zap.String("warning", w))
	}
	stats, err := p.Process(ctx, sheet)
	return []byte(sheet.String()), stats, err
}

// plan parses declaration value and finds url() nodes with SVG inside.
func (ps *pass) plan(decl *css.Declaration) *job {
	j := &job{decl: decl, tree: css.ParseValue(decl.Value)}
	j.tree.Walk(func(n *css.Node) css.WalkAction {
		if !n.IsURL() {
			return css.Descend
		}

		payload := n.Nodes[0].Value
		text, ok := datauri.Decode(payload)
		encoded := ok && text != payload
		if !encoded {
			text = payload
		}
		text = ps.opts.Patterns.Strip(text)

		if !images.IsSVG(text) {
			ps.stats.skipped.Add(1)
			ps.log.Debug("Not an SVG, skipping",
				zap.String("property", decl.Property),
				zap.Int("line", decl.Line),
				zap.String("payload", truncate(payload, 50)))
			return css.SkipChildren
		}

		j.targets = append(j.targets, &target{fn: n, svg: text, encoded: encoded})
		return css.SkipChildren
	})
	if ce := ps.log.Check(zap.DebugLevel, "Declaration scheduled"); ce != nil {
		ce.Write(
			zap.String("property", decl.Property),
			zap.Int("line", decl.Line),
			zap.Int("images", len(j.targets)),
			zap.String("tree", j.tree.Dump()))
	}
	return j
}

// optimize runs optimizer for a single node and returns text ready to be
// placed after data URI prefix.
func (ps *pass) optimize(ctx context.Context, decl *css.Declaration, t *target) (string, error) {
	if ps.sem != nil {
		if err := ps.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer ps.sem.Release(1)
	}

	out, err := ps.opt.Optimize(ctx, t.svg)
	if err != nil {
		ps.log.Debug("Optimizer failed", zap.String("property", decl.Property), zap.Int("line", decl.Line), zap.Error(err))
		return "", &Error{Property: decl.Property, Err: err}
	}
	if t.encoded {
		out = datauri.Encode(out)
	}
	return datauri.EscapeHash(out), nil
}

// runFailFast stops at the first failure. Declarations which completed
// before that keep their new values, results arriving later are dropped.
func (ps *pass) runFailFast(ctx context.Context, jobs []*job) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			dg, dctx := errgroup.WithContext(gctx)
			for _, t := range j.targets {
				dg.Go(func() error {
					res, err := ps.optimize(dctx, j.decl, t)
					if err != nil {
						return err
					}
					t.result = res
					return nil
				})
			}
			if err := dg.Wait(); err != nil {
				return err
			}
			// some other declaration failed while we were busy
			if err := gctx.Err(); err != nil {
				return err
			}
			ps.commit(j)
			return nil
		})
	}
	return g.Wait()
}

// runAtomic lets every optimization finish and changes stylesheet only when
// all of them succeeded.
func (ps *pass) runAtomic(ctx context.Context, jobs []*job) error {
	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	for _, j := range jobs {
		g.Go(func() error {
			var dg errgroup.Group
			for _, t := range j.targets {
				dg.Go(func() error {
					res, err := ps.optimize(ctx, j.decl, t)
					if err != nil {
						mu.Lock()
						errs = multierr.Append(errs, err)
						mu.Unlock()
						return nil
					}
					t.result = res
					return nil
				})
			}
			return dg.Wait()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if errs != nil {
		return errs
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, j := range jobs {
		ps.commit(j)
	}
	return nil
}

func (ps *pass) commit(j *job) {
	j.commit(&ps.stats)
	if ps.committed != nil {
		ps.committed(j.decl)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
