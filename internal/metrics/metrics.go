package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exports generation pipeline metrics to Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	generations     *prometheus.CounterVec
	generationTime  *prometheus.HistogramVec
	llmAttempts     *prometheus.CounterVec
	templateResults *prometheus.CounterVec
	slides          prometheus.Histogram
	gatherer        prometheus.Gatherer
}

// NewRecorder registers the pipeline metrics on reg (the default registry when nil).
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "presentation_generator"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Presentation generations by provider and outcome.",
		}, []string{"provider", "status"}),
		generationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation latency.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120, 180},
		}, []string{"provider"}),
		llmAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_attempts_total",
			Help:      "Structure generation attempts against LLM providers.",
		}, []string{"provider", "outcome"}),
		templateResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_extractions_total",
			Help:      "Template style extractions by result (theme, defaults).",
		}, []string{"result"}),
		slides: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slides_per_presentation",
			Help:      "Number of content slides per generated deck.",
			Buckets:   prometheus.LinearBuckets(2, 2, 8),
		}),
	}

	var err error
	if r.generations, err = register(reg, r.generations); err != nil {
		return nil, err
	}
	if r.generationTime, err = register(reg, r.generationTime); err != nil {
		return nil, err
	}
	if r.llmAttempts, err = register(reg, r.llmAttempts); err != nil {
		return nil, err
	}
	if r.templateResults, err = register(reg, r.templateResults); err != nil {
		return nil, err
	}
	if r.slides, err = register(reg, r.slides); err != nil {
		return nil, err
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		r.gatherer = g
	} else {
		r.gatherer = prometheus.DefaultGatherer
	}

	return r, nil
}

// register adds c to reg. When an identical collector is already registered
// that one is returned, so observations land on the exported series.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// Handler serves the registry the recorder was registered on.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveGeneration(provider string, duration time.Duration, slideCount int, err error) {
	if r == nil {
		return
	}
	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.generations.WithLabelValues(provider, status).Inc()
	r.generationTime.WithLabelValues(provider).Observe(duration.Seconds())
	if err == nil {
		r.slides.Observe(float64(slideCount))
	}
}

func (r *Recorder) ObserveLLMAttempt(provider string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.llmAttempts.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) ObserveTemplate(usedDefaults bool) {
	if r == nil {
		return
	}
	result := "theme"
	if usedDefaults {
		result = "defaults"
	}
	r.templateResults.WithLabelValues(result).Inc()
}
