// Package processor provides the site-build processors. Each processor
// attaches work units to a pipeline; the units read the shared site and
// hand mutations back through background tasks and commands.
package processor

import (
	"fmt"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
)

// Pipeline is the pipeline every processor registers with.
type Pipeline = engine.Pipeline[*site.Site]

// Deferred is the task spawner work units receive.
type Deferred = engine.Deferred[*site.Site]

// Scope is the capability background tasks receive.
type Scope = engine.Scope[*site.Site]

// Command mutates the site at a phase barrier.
type Command = engine.Command[*site.Site]

// Processor attaches work units to a pipeline.
type Processor interface {
	Name() string
	Register(p *Pipeline) error
}

// Recorder stores the checksum of each written output. It is only called
// from tasks pinned to the driving goroutine.
type Recorder interface {
	RecordOutput(output, checksum string)
}

// RegisterAll registers processors in order and stops at the first error.
func RegisterAll(p *Pipeline, processors ...Processor) error {
	for _, proc := range processors {
		if err := proc.Register(p); err != nil {
			return fmt.Errorf("register %s processor: %w", proc.Name(), err)
		}
	}
	return nil
}

// Options configures the default processor set.
type Options struct {
	Logger    logger.Logger
	Recorder  Recorder
	Overrides []func(*types.SiteConfig)
}

// Defaults returns the standard processors: configuration, content,
// templates and static files.
func Defaults(opts Options) []Processor {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return []Processor{
		NewConfigProcessor(log, opts.Overrides...),
		NewContentProcessor(log),
		NewTemplateProcessor(log, opts.Recorder),
		NewStaticProcessor(log),
	}
}

func addUnits(p *Pipeline, phase string, units ...unit) error {
	for _, u := range units {
		if err := p.AddWorkUnit(phase, u.name, u.fn, u.after...); err != nil {
			return err
		}
	}
	return nil
}

type unit struct {
	name  string
	fn    engine.WorkFunc[*site.Site]
	after []string
}
