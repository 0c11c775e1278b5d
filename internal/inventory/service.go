package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MdSium003/AgamiOps/internal/extract"
	"github.com/MdSium003/AgamiOps/internal/generation"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
)

var ErrInvalidInput = errors.New("inventoryData must be a non-empty array")

type Service struct {
	runner    *pipeline.Runner
	uploadDir string
	log       *logger.Logger
	now       func() time.Time
}

func NewService(runner *pipeline.Runner, uploadDir string, log *logger.Logger) *Service {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Service{runner: runner, uploadDir: uploadDir, log: logger.OrNop(log), now: time.Now}
}

func (s *Service) UploadDir() string { return s.uploadDir }

type AnalysisResult struct {
	Analysis Analysis
	Source   pipeline.Source
}

// Analyze always returns a complete analysis for a non-empty upload.
func (s *Service) Analyze(ctx context.Context, records []*Record) (AnalysisResult, error) {
	if len(records) == 0 {
		return AnalysisResult{}, ErrInvalidInput
	}
	out, err := pipeline.Run(ctx, s.runner, pipeline.Spec[Analysis]{
		Schema:    "inventory_analysis",
		Prompt:    BuildAnalysisPrompt(records),
		Root:      extract.RootObject,
		Normalize: func(v any) Analysis { return NormalizeAnalysis(v, len(records)) },
		Fallback:  func() any { return Fallback(records) },
	})
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{Analysis: out.Value, Source: out.Source}, nil
}

// AnalyzeImage stores the photo under the upload directory and estimates its
// contents. The returned File is the public path of the stored copy.
func (s *Service) AnalyzeImage(ctx context.Context, dataURL, fileName string) (ImageAnalysis, error) {
	mimeType, data, err := ParseDataURL(dataURL)
	if err != nil {
		return ImageAnalysis{}, err
	}
	name := SafeFileName(fileName, s.now())
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return ImageAnalysis{}, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.uploadDir, name), data, 0o644); err != nil {
		return ImageAnalysis{}, fmt.Errorf("store image: %w", err)
	}

	out, err := pipeline.Run(ctx, s.runner, pipeline.Spec[ImageAnalysis]{
		Schema: "image_analysis",
		Prompt: imagePrompt,
		Root:   extract.RootObject,
		Invoke: func(ctx context.Context, inv *generation.Invoker, prompt string) (string, error) {
			return inv.InvokeWithImage(ctx, prompt, mimeType, data)
		},
		Normalize: NormalizeImage,
		Fallback:  ImageFallback,
	})
	if err != nil {
		return ImageAnalysis{}, err
	}
	res := out.Value
	res.File = "/uploads/" + name
	return res, nil
}
