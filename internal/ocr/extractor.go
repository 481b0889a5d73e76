// Package ocr reads the CP number out of a screenshot.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/m3rciful/cpgamebot/core/logger"
)

var (
	// ErrEngineUnavailable means no OCR engine can be used at all.
	ErrEngineUnavailable = errors.New("ocr: engine unavailable")
	// ErrDecode wraps image decoding failures.
	ErrDecode = errors.New("ocr: decode image")
)

// DefaultLanguage is the language hint passed to the engine.
const DefaultLanguage = "eng"

// Engine turns an encoded image into raw text.
type Engine interface {
	Recognize(ctx context.Context, png []byte, language string) (string, error)
}

// Options configures an Extractor.
type Options struct {
	Region        Region
	Language      string
	Grayscale     bool
	MaxConcurrent int
}

// Result carries the extracted number together with diagnostics.
type Result struct {
	Number int
	Found  bool
	Text   string
	Width  int
	Height int
}

// Extractor runs the crop and OCR pipeline.
type Extractor struct {
	engine Engine
	opts   Options
	sem    *semaphore.Weighted
}

// NewExtractor builds an Extractor, filling defaults for zero options.
func NewExtractor(engine Engine, opts Options) (*Extractor, error) {
	if engine == nil {
		return nil, ErrEngineUnavailable
	}
	if opts.Region.IsZero() {
		opts.Region = DefaultRegion
	}
	if err := opts.Region.Validate(); err != nil {
		return nil, err
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	return &Extractor{
		engine: engine,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}, nil
}

// Extract returns the number printed in the configured region, if any.
func (e *Extractor) Extract(ctx context.Context, data []byte) (int, bool, error) {
	res, err := e.Read(ctx, data)
	if err != nil {
		return 0, false, err
	}
	return res.Number, res.Found, nil
}

// Read is Extract with diagnostics.
func (e *Extractor) Read(ctx context.Context, data []byte) (Result, error) {
	start := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := img.Bounds()
	res := Result{Width: bounds.Dx(), Height: bounds.Dy()}

	crop := imaging.Crop(img, e.opts.Region.Rect(bounds))
	if e.opts.Grayscale {
		crop = imaging.Grayscale(crop)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, crop, imaging.PNG); err != nil {
		return res, fmt.Errorf("ocr: encode crop: %w", err)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return res, err
	}
	text, err := e.engine.Recognize(ctx, buf.Bytes(), e.opts.Language)
	e.sem.Release(1)
	if err != nil {
		return res, fmt.Errorf("ocr: recognize: %w", err)
	}

	res.Text = text
	res.Number, res.Found = ParseNumber(text)
	logger.Debug(ctx, "ocr", "ocr.read",
		slog.Int("width", res.Width),
		slog.Int("height", res.Height),
		slog.String("text", logger.SanitizeLimit(text, 64)),
		slog.Bool("found", res.Found),
		slog.Int("number", res.Number),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}
