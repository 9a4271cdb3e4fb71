package optimize

import "inlinesvg/css"

// SetCommitHook makes p call fn every time declaration value is written.
func SetCommitHook(p *Processor, fn func(decl *css.Declaration)) {
	p.committed = fn
}
