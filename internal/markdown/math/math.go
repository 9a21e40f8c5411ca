// Package math defers TeX typesetting until a document has been rendered.
//
// The Markdown renderer writes a unique placeholder for every expression and
// records a Job. Once rendering is done, all jobs are typeset concurrently and
// each placeholder is replaced by exact match in every output string.
package math

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Job is one TeX expression awaiting typesetting.
type Job struct {
	Placeholder string
	TeX         string
	Display     bool
}

// Registry collects the jobs of one render call.
type Registry struct {
	mu   sync.Mutex
	jobs []Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Add records an expression and returns the placeholder standing in for it.
func (r *Registry) Add(tex string, display bool) string {
	p := Placeholder(uuid.NewString())
	r.mu.Lock()
	r.jobs = append(r.jobs, Job{Placeholder: p, TeX: tex, Display: display})
	r.mu.Unlock()
	return p
}

// Jobs returns the recorded jobs in discovery order.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Job(nil), r.jobs...)
}

// Len returns the number of recorded jobs.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Placeholder formats the HTML comment that marks an expression's position.
func Placeholder(id string) string {
	return "<!-- math-" + id + " -->"
}

// PlaceholderPattern matches any placeholder produced by Placeholder with a UUID.
var PlaceholderPattern = regexp.MustCompile(`<!-- math-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12} -->`)

// Typesetter converts TeX into markup.
type Typesetter interface {
	Typeset(ctx context.Context, tex string, display bool) (string, error)
	// Stylesheet returns CSS required by the produced markup, or "".
	Stylesheet() string
}

// Resolve typesets all jobs concurrently and returns the markup keyed by
// placeholder. The first failure cancels the remaining jobs.
func Resolve(ctx context.Context, ts Typesetter, jobs []Job) (map[string]string, error) {
	results := make(map[string]string, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			markup, err := ts.Typeset(gctx, job.TeX, job.Display)
			if err != nil {
				return &Error{TeX: job.TeX, Display: job.Display, Err: err}
			}
			mu.Lock()
			results[job.Placeholder] = markup
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

var mjxBreak = regexp.MustCompile(`<mjx-break[^>]*> </mjx-break>`)

// Substitute replaces every placeholder in s by its typeset markup and keeps
// the single space inside <mjx-break> elements from being collapsed by
// template compilers.
func Substitute(s string, results map[string]string) string {
	if len(results) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(results))
	for placeholder, markup := range results {
		pairs = append(pairs, placeholder, markup)
	}
	s = strings.NewReplacer(pairs...).Replace(s)
	return mjxBreak.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Replace(m, "> <", ">&nbsp;<", 1)
	})
}

// Error reports a failed expression.
type Error struct {
	TeX     string
	Display bool
	Err     error
}

func (e *Error) Error() string {
	return "typeset " + quoteTeX(e.TeX) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func quoteTeX(tex string) string {
	const limit = 40
	if len(tex) > limit {
		tex = tex[:limit] + "…"
	}
	return `"` + tex + `"`
}
