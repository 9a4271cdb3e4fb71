package optimize

import (
	"context"
	"fmt"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"

	"inlinesvg/utils/images"
)

const (
	svgMimeType = "image/svg+xml"
	cssMimeType = "text/css"
)

// Optimizer turns SVG markup into optimized SVG markup. Implementations must
// be safe for concurrent use, wrap them with Serialized otherwise.
type Optimizer interface {
	Optimize(ctx context.Context, svg string) (string, error)
}

// OptimizerFunc is an adapter to allow the use of ordinary functions as
// optimizers.
type OptimizerFunc func(ctx context.Context, svg string) (string, error)

// Optimize calls f(ctx, svg).
func (f OptimizerFunc) Optimize(ctx context.Context, svg string) (string, error) {
	return f(ctx, svg)
}

// SVGOptions are handed to the minifier as is.
type SVGOptions struct {
	Precision    int  // number of significant digits for numbers, 0 keeps original
	KeepComments bool // preserve comments
}

type minifier struct {
	m *minify.M
}

// NewMinifier returns an optimizer based on tdewolff/minify. Inline <style>
// elements are minified as well.
func NewMinifier(opts SVGOptions) Optimizer {
	m := minify.New()
	m.AddFunc(cssMimeType, css.Minify)
	m.Add(svgMimeType, &svg.Minifier{
		Precision:    opts.Precision,
		KeepComments: opts.KeepComments,
	})
	return &minifier{m: m}
}

func (o *minifier) Optimize(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := o.m.String(svgMimeType, text)
	if err != nil {
		return "", fmt.Errorf("unable to minify svg: %w", err)
	}
	return out, nil
}

type serialized struct {
	mu  sync.Mutex
	opt Optimizer
}

// Serialized makes sure only one call to opt is active at any time.
func Serialized(opt Optimizer) Optimizer {
	return &serialized{opt: opt}
}

func (s *serialized) Optimize(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.opt.Optimize(ctx, text)
}

// Verified rejects optimizer output which could not be parsed back and
// rendered.
func Verified(opt Optimizer) Optimizer {
	return OptimizerFunc(func(ctx context.Context, text string) (string, error) {
		out, err := opt.Optimize(ctx, text)
		if err != nil {
			return "", err
		}
		if err := images.VerifySVG(out); err != nil {
			return "", fmt.Errorf("optimized svg rejected: %w", err)
		}
		return out, nil
	})
}
