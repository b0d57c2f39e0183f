// Package compilation orchestrates the compiler pipeline: source text to
// syntax tree to bound tree to IR, collecting diagnostics throughout. A
// compilation is single-threaded; a host may run many in parallel.
package compilation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lucyelle/DracoCompiler/internal/binder"
	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/ir"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// AssemblyRef names a metadata assembly to resolve through the symbol
// provider.
type AssemblyRef struct {
	Name           string
	PublicKeyToken string
}

// Config configures a compilation.
type Config struct {
	// Provider supplies external symbols; nil compiles without metadata.
	Provider symbols.Provider

	// References lists the assemblies to resolve at startup.
	References []AssemblyRef

	// Logger traces phase timing; nil disables tracing.
	Logger *zap.Logger
}

// Result is the outcome of a compilation. Diagnostics never abort the
// pipeline: a result always carries a tree and a bound module, with
// error types standing in for whatever could not be resolved.
type Result struct {
	Tree        *syntax.Tree
	Bound       *binder.BoundModule
	IR          *ir.Module
	Diagnostics []*diag.Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity() == diag.Error {
			return true
		}
	}
	return false
}

// Compilation carries the per-compilation context: the intrinsics, the
// logger, and the metadata assembly cache. Each Compile call collects its
// diagnostics in a fresh bag.
type Compilation struct {
	cfg   Config
	log   *zap.Logger
	sctx  *symbols.Context
	cache *symbols.AssemblyCache
}

// New creates a compilation with its own symbol context; nothing is
// shared between compilations.
func New(cfg Config) *Compilation {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Compilation{
		cfg:   cfg,
		log:   log,
		sctx:  symbols.NewContext(),
		cache: symbols.NewAssemblyCache(cfg.Provider),
	}
}

// Context returns the compilation's symbol context.
func (c *Compilation) Context() *symbols.Context { return c.sctx }

// Compile runs the full pipeline over one source text. Cancellation is
// consulted between phases; on cancellation the partial result is
// returned with whatever phases completed.
func (c *Compilation) Compile(ctx context.Context, source string) *Result {
	bag := diag.NewBag()
	result := &Result{}

	tree := c.Parse(source)
	result.Tree = tree
	bag.AddAll(tree.Diagnostics())
	if ctx.Err() != nil {
		result.Diagnostics = bag.Diagnostics()
		return result
	}

	assemblies := c.resolveReferences(bag)

	start := time.Now()
	result.Bound = binder.Bind(ctx, c.sctx, tree, assemblies, bag)
	c.log.Debug("bind completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("functions", len(result.Bound.Funcs)))
	if ctx.Err() != nil {
		result.Diagnostics = bag.Diagnostics()
		return result
	}

	start = time.Now()
	result.IR = ir.Lower(ctx, c.sctx, result.Bound, bag)
	c.log.Debug("lowering completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("procedures", len(result.IR.Procedures)))

	result.Diagnostics = bag.Diagnostics()
	return result
}

// Parse runs only the front half of the pipeline.
func (c *Compilation) Parse(source string) *syntax.Tree {
	start := time.Now()
	tree := syntax.Parse(source)
	c.log.Debug("parse completed", zap.Duration("elapsed", time.Since(start)))
	return tree
}

// resolveReferences resolves the configured assemblies through the
// provider, reporting failures as diagnostics.
func (c *Compilation) resolveReferences(bag *diag.Bag) []symbols.Assembly {
	var out []symbols.Assembly
	for _, ref := range c.cfg.References {
		asm, err := c.cache.Get(ref.Name, ref.PublicKeyToken)
		if err != nil {
			c.log.Warn("assembly resolution failed",
				zap.String("assembly", ref.Name), zap.Error(err))
			bag.AddNew(diag.UndefinedReference, diag.Span{}, ref.Name)
			continue
		}
		if asm != nil {
			out = append(out, asm)
		}
	}
	return out
}
