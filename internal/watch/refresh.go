package watch

import (
	"context"
	"time"

	"cvforge/internal/content"
	"cvforge/internal/document"
	"cvforge/internal/errors"
	"cvforge/internal/render"
	"cvforge/internal/types"
)

// Snapshot is the state of the watched file after one refresh.
type Snapshot struct {
	File       string                 `json:"file"`
	Extraction types.ExtractionResult `json:"extraction"`
	Processed  content.Processed      `json:"processed"`
	Blocks     []render.Block         `json:"blocks"`
	Refreshed  time.Time              `json:"refreshed"`
}

// Refresher re-reads a file and runs it through extraction, sanitization and
// preview.
type Refresher struct {
	validator document.Validator
	extractor *document.Extractor
	kind      content.Kind
	logger    *errors.Logger
	now       func() time.Time
}

// NewRefresher creates a Refresher that sanitizes with the rule for kind.
func NewRefresher(validator document.Validator, extractor *document.Extractor, kind content.Kind, logger *errors.Logger) *Refresher {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &Refresher{
		validator: validator,
		extractor: extractor,
		kind:      kind,
		logger:    logger,
		now:       time.Now,
	}
}

// Refresh loads path and returns its preview.
func (r *Refresher) Refresh(ctx context.Context, path string) (Snapshot, error) {
	doc, err := r.validator.ReadFile(path)
	if err != nil {
		r.logger.LogError(err, "Failed to reload watched file", "file", path)
		return Snapshot{}, err
	}

	extraction := r.extractor.Extract(ctx, doc)
	processed := content.Process(extraction.Body, r.kind)

	r.logger.Debug("Watched file refreshed",
		"file", path,
		"opaque", processed.Opaque,
		"chars", len(processed.Text))

	return Snapshot{
		File:       doc.FileName,
		Extraction: extraction,
		Processed:  processed,
		Blocks:     render.ToBlocks(processed.Text),
		Refreshed:  r.now(),
	}, nil
}
