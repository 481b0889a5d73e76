// Package tesseract is the libtesseract-backed ocr.Engine. It needs cgo and
// the tesseract headers, so it is kept apart from the pure pipeline in ocr.
package tesseract

import (
	"context"
	"fmt"
	"slices"

	"github.com/otiai10/gosseract/v2"

	"github.com/m3rciful/cpgamebot/internal/ocr"
)

// DefaultPageSegMode is tesseract's automatic page layout, the mode the
// engine runs in when no layout is requested.
const DefaultPageSegMode = gosseract.PSM_AUTO

// Engine recognizes text through libtesseract. A fresh client is created per
// call because clients are not goroutine safe. The zero PageSegMode
// (OSD only, no text) falls back to DefaultPageSegMode.
type Engine struct {
	PageSegMode gosseract.PageSegMode
}

var _ ocr.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{PageSegMode: DefaultPageSegMode}
}

// Check verifies that tesseract is installed and knows language.
func (e *Engine) Check(language string) error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	if !slices.Contains(langs, language) {
		return fmt.Errorf("%w: language %q not installed (have %v)", ocr.ErrEngineUnavailable, language, langs)
	}
	return nil
}

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, png []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", err
	}
	mode := e.PageSegMode
	if mode == gosseract.PSM_OSD_ONLY {
		mode = DefaultPageSegMode
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", err
	}
	return client.Text()
}
