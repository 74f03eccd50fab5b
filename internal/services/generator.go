package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/metrics"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/storage"
)

const generationSteps = 3

type StructureGenerator interface {
	GenerateStructure(ctx context.Context, req StructureRequest) (*models.PresentationStructure, error)
}

type StyleExtractor interface {
	ExtractStyle(templatePath string) *models.TemplateStyle
}

type DeckWriter interface {
	Generate(structure *models.PresentationStructure, style *models.TemplateStyle, templatePath, outputPath string) error
}

type ProgressPublisher interface {
	Publish(ctx context.Context, jobID string, msg models.WSMessage)
}

type GenerationRecorder interface {
	Create(ctx context.Context, g *models.Generation) error
}

// GenerationRequest is one validated /api/generate submission.
type GenerationRequest struct {
	JobID        string
	Text         string
	Guidance     string
	APIKey       string
	Provider     string
	Model        string
	SpeakerNotes bool
	TemplatePath string
	TemplateName string
}

type GenerationResult struct {
	Structure   *models.PresentationStructure
	Filename    string
	DownloadURL string
	Preview     []models.SlidePreview
}

// GenerationDeps wires the optional collaborators of a GenerationService.
// Registry, Progress, History and Metrics may be nil.
type GenerationDeps struct {
	LLM       StructureGenerator
	Templates StyleExtractor
	Decks     DeckWriter
	Registry  storage.Registry
	Progress  ProgressPublisher
	History   GenerationRecorder
	Metrics   *metrics.Recorder
	OutputDir string
	OutputTTL time.Duration
}

type GenerationService struct {
	deps GenerationDeps
	now  func() time.Time
}

func NewGenerationService(deps GenerationDeps) *GenerationService {
	if deps.OutputTTL <= 0 {
		deps.OutputTTL = time.Hour
	}
	return &GenerationService{deps: deps, now: time.Now}
}

// Generate runs the whole pipeline: structure and template style in
// parallel, then deck assembly and registration for download.
func (s *GenerationService) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	start := s.now()

	result, err := s.generate(ctx, req)

	duration := s.now().Sub(start)
	slideCount := 0
	if result != nil {
		slideCount = len(result.Structure.Slides)
	}
	s.deps.Metrics.ObserveGeneration(req.Provider, duration, slideCount, err)
	s.record(req, result, err, duration)

	if err != nil {
		classified := ClassifyError(err)
		s.publish(ctx, req.JobID, "error", models.ErrorEvent{JobID: req.JobID, ErrorMessage: classified.Message})
		return nil, err
	}

	s.publish(ctx, req.JobID, "completed", models.CompletedEvent{
		JobID:       req.JobID,
		DownloadURL: result.DownloadURL,
		SlideCount:  slideCount,
	})
	log.Printf("Generated %s via %s: %d slides in %s", result.Filename, req.Provider, slideCount, duration.Round(time.Millisecond))
	return result, nil
}

func (s *GenerationService) generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	s.progress(ctx, req.JobID, 1, "Generating structure and analyzing template")

	var (
		structure *models.PresentationStructure
		style     *models.TemplateStyle
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		structure, err = s.deps.LLM.GenerateStructure(egCtx, StructureRequest{
			Text:         req.Text,
			Guidance:     req.Guidance,
			APIKey:       req.APIKey,
			Provider:     req.Provider,
			Model:        req.Model,
			SpeakerNotes: req.SpeakerNotes,
		})
		return err
	})
	eg.Go(func() error {
		style = s.deps.Templates.ExtractStyle(req.TemplatePath)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	s.progress(ctx, req.JobID, 2, "Building slides")

	filename := OutputFilename(uuid.NewString())
	outputPath := filepath.Join(s.deps.OutputDir, filename)
	if err := s.deps.Decks.Generate(structure, style, req.TemplatePath, outputPath); err != nil {
		return nil, fmt.Errorf("failed to build presentation: %w", err)
	}

	s.progress(ctx, req.JobID, 3, "Finalizing")

	if s.deps.Registry != nil {
		now := s.now()
		rec := models.OutputRecord{
			Filename:  filename,
			Title:     structure.Title,
			CreatedAt: now,
			ExpiresAt: now.Add(s.deps.OutputTTL),
		}
		if err := s.deps.Registry.Register(ctx, rec); err != nil {
			log.Printf("failed to register output %s: %v", filename, err)
		}
	}

	return &GenerationResult{
		Structure:   structure,
		Filename:    filename,
		DownloadURL: "/api/download/" + filename,
		Preview:     models.BuildPreview(structure),
	}, nil
}

func (s *GenerationService) progress(ctx context.Context, jobID string, step int, name string) {
	s.publish(ctx, jobID, "status_update", models.StatusUpdate{
		JobID:      jobID,
		Step:       step,
		TotalSteps: generationSteps,
		StepName:   name,
	})
}

func (s *GenerationService) publish(ctx context.Context, jobID, msgType string, payload interface{}) {
	if s.deps.Progress == nil || jobID == "" {
		return
	}
	s.deps.Progress.Publish(ctx, jobID, models.WSMessage{Type: msgType, Payload: payload})
}

// record writes a history row. The request context may already be done, so
// it runs on its own deadline.
func (s *GenerationService) record(req GenerationRequest, result *GenerationResult, genErr error, duration time.Duration) {
	if s.deps.History == nil {
		return
	}

	g := &models.Generation{
		ID:           uuid.New(),
		Provider:     req.Provider,
		Model:        req.Model,
		SpeakerNotes: req.SpeakerNotes,
		TemplateName: req.TemplateName,
		Status:       "completed",
		DurationMS:   duration.Milliseconds(),
	}
	if result != nil {
		g.Title = result.Structure.Title
		g.SlideCount = len(result.Structure.Slides)
		g.OutputFilename = result.Filename
	}
	if genErr != nil {
		g.Status = "failed"
		msg := genErr.Error()
		g.ErrorMessage = &msg
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.History.Create(ctx, g); err != nil {
		log.Printf("failed to record generation history: %v", err)
	}
}
