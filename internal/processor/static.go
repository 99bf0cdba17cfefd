package processor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/utils"
)

// StaticProcessor copies the static dir into the output dir unchanged.
type StaticProcessor struct {
	logger logger.Logger
}

// NewStaticProcessor creates a static file processor.
func NewStaticProcessor(log logger.Logger) *StaticProcessor {
	return &StaticProcessor{logger: log}
}

func (st *StaticProcessor) Name() string { return "static" }

func (st *StaticProcessor) Register(p *Pipeline) error {
	return addUnits(p, engine.PhaseWrite, unit{name: "copy_static", fn: st.copyStatic})
}

func (st *StaticProcessor) copyStatic(ctx context.Context, s *site.Site, d *Deferred) error {
	src := s.StaticDir()
	if !utils.DirectoryExists(src) {
		logger.WithContext(ctx, st.logger).Debug("No static directory", logger.WithField("dir", src))
		return nil
	}
	dst := s.OutputDir()

	d.Spawn(ctx, "copy_static", func(ctx context.Context, scope *Scope) error {
		files, err := utils.ListFiles(src)
		if err != nil {
			return err
		}
		logger.WithContext(ctx, st.logger).Info("Copying static files", logger.WithField("files", len(files)))

		for _, rel := range files {
			scope.Spawn("copy "+rel, func(ctx context.Context, scope *Scope) error {
				from := filepath.Join(src, filepath.FromSlash(rel))
				if err := utils.CopyFile(from, filepath.Join(dst, filepath.FromSlash(rel))); err != nil {
					return fmt.Errorf("copy %s: %w", rel, err)
				}
				result := site.WriteResult{Path: rel, Static: true}
				scope.Enqueue(func(s *site.Site) { s.AddResult(result) })
				return nil
			})
		}
		return nil
	})
	return nil
}
