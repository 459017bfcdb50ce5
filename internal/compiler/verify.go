package compiler

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Verifier checks a produced PDF and returns its page count.
type Verifier interface {
	Verify(path string) (int, error)
}

// PDFVerifier validates artifacts with pdfcpu in relaxed mode.
type PDFVerifier struct {
	conf *model.Configuration
}

// NewPDFVerifier creates a verifier with the relaxed pdfcpu configuration.
func NewPDFVerifier() *PDFVerifier {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFVerifier{conf: conf}
}

// Verify implements Verifier.
func (v *PDFVerifier) Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	if info.Size() == 0 {
		return 0, ErrEmptyArtifact
	}
	if err := api.ValidateFile(path, v.conf); err != nil {
		return 0, fmt.Errorf("invalid pdf: %w", err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	if pages < 1 {
		return 0, ErrEmptyArtifact
	}
	return pages, nil
}

// existsVerifier only checks that the PDF was written.
type existsVerifier struct{}

func (existsVerifier) Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	if info.Size() == 0 {
		return 0, ErrEmptyArtifact
	}
	return 0, nil
}
