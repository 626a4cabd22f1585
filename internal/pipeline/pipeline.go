// Package pipeline orchestrates the firmware build stages (compile, link,
// extract, install) in dependency order with fail-fast semantics.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/metrics"
)

// Registry maps stage names to stage implementations.
type Registry struct {
	stages map[StageName]Stage
}

// NewRegistry creates a registry from the given stages.
func NewRegistry(stages ...Stage) *Registry {
	r := &Registry{stages: make(map[StageName]Stage, len(stages))}
	for _, s := range stages {
		r.stages[s.Name()] = s
	}
	return r
}

// Get returns the stage registered under name.
func (r *Registry) Get(name StageName) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// Pipeline executes stages in dependency order, stopping at the first
// failure. A stage whose dependency failed is never executed.
type Pipeline struct {
	registry   *Registry
	middleware []Middleware
}

// Option configures pipeline behavior.
type Option func(*Pipeline)

// WithMiddleware adds middleware to the pipeline.
func WithMiddleware(mw ...Middleware) Option {
	return func(p *Pipeline) {
		p.middleware = append(p.middleware, mw...)
	}
}

// New creates a stage pipeline over a registry.
func New(registry *Registry, options ...Option) *Pipeline {
	p := &Pipeline{registry: registry}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Plan is the resolved execution order for a set of requested stages,
// including transitively required dependencies.
type Plan struct {
	Order []StageName
}

// BuildPlan resolves dependencies and produces a deterministic topological
// order for the requested stages.
func (p *Pipeline) BuildPlan(stages []StageName) (*Plan, error) {
	if len(stages) == 0 {
		return &Plan{}, nil
	}

	stageSet := make(map[StageName]bool)
	graph := make(map[StageName][]StageName) // dependency -> dependents

	var add func(StageName) error
	add = func(name StageName) error {
		stage, ok := p.registry.Get(name)
		if !ok {
			return fmt.Errorf("stage %s not found in registry", name)
		}
		for _, dep := range stage.Dependencies() {
			if !stageSet[dep] {
				stageSet[dep] = true
				if err := add(dep); err != nil {
					return err
				}
			}
			graph[dep] = append(graph[dep], name)
		}
		return nil
	}

	for _, name := range stages {
		if !stageSet[name] {
			stageSet[name] = true
			if err := add(name); err != nil {
				return nil, fmt.Errorf("resolving dependencies for %s: %w", name, err)
			}
		}
	}

	inDegree := make(map[StageName]int, len(stageSet))
	for name := range stageSet {
		inDegree[name] = 0
	}
	for _, dependents := range graph {
		for _, d := range dependents {
			inDegree[d]++
		}
	}

	var queue []StageName
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sortStages(queue)

	var order []StageName
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		dependents := graph[current]
		sortStages(dependents)
		for _, d := range dependents {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
		sortStages(queue)
	}

	if len(order) != len(stageSet) {
		return nil, fmt.Errorf("dependency cycle detected among stages")
	}

	return &Plan{Order: order}, nil
}

// Execute runs the plan's stages in order against the build context.
// The first failure aborts the run; remaining stages are recorded as
// skipped and never executed.
func (p *Pipeline) Execute(ctx context.Context, bc *BuildContext, plan *Plan) ([]StageResult, error) {
	results := make([]StageResult, 0, len(plan.Order))
	var failed error

	for _, name := range plan.Order {
		if failed != nil {
			results = append(results, StageResult{Stage: name, Result: metrics.ResultSkipped})
			if bc.Recorder != nil {
				bc.Recorder.IncStageResult(string(name), metrics.ResultSkipped)
			}
			continue
		}

		stage, ok := p.registry.Get(name)
		if !ok {
			return results, fmt.Errorf("stage %s vanished from registry", name)
		}

		exec := stage.Execute
		for j := len(p.middleware) - 1; j >= 0; j-- {
			exec = p.middleware[j](name, exec)
		}

		start := time.Now()
		err := exec(ctx, bc)
		elapsed := time.Since(start)

		result := StageResult{Stage: name, Duration: elapsed}
		switch {
		case err == nil:
			result.Result = metrics.ResultSuccess
		case ctx.Err() != nil:
			result.Result = metrics.ResultCanceled
			result.Err = err
			failed = err
		default:
			result.Result = metrics.ResultFatal
			result.Err = err
			failed = err
		}
		results = append(results, result)
	}

	return results, failed
}

func sortStages(s []StageName) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
