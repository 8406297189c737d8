// Package router composes the handler registry and the task
// classifier into a total routing function: once the catch-all
// handler is registered, routing never fails, even though
// classification may.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tripmate-ai/tripmate/trip/classify"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
	"github.com/tripmate-ai/tripmate/trip/handlers"
)

// ErrNoHandlers is returned when routing is attempted against an
// empty registry, a programming-time misconfiguration.
var ErrNoHandlers = errors.New("no handlers registered")

// DefaultThreshold is the confidence a classification must exceed for
// its category's handler to be selected.
const DefaultThreshold = 0.3

// Decision is the outcome of routing one utterance.
type Decision struct {
	Handler        handlers.Handler
	Classification classify.Classification
}

// TaskRouter selects a specialist handler for each utterance.
type TaskRouter struct {
	registry   *handlers.Registry
	classifier classify.Classifier
	threshold  float64
	logger     zerolog.Logger
}

// NewTaskRouter builds a router over registry and classifier. A
// non-positive threshold takes DefaultThreshold.
func NewTaskRouter(registry *handlers.Registry, classifier classify.Classifier, threshold float64, logger zerolog.Logger) *TaskRouter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &TaskRouter{
		registry:   registry,
		classifier: classifier,
		threshold:  threshold,
		logger:     logger.With().Str("component", "task_router").Logger(),
	}
}

// Route classifies the utterance and selects its handler. The
// classified handler is used only when the confidence exceeds the
// threshold and the category is registered; in every other case,
// including a classifier error, the catch-all handler is returned
// with the fallback classification.
func (r *TaskRouter) Route(ctx context.Context, userInput string, chat genports.ChatContext) (Decision, error) {
	if r.registry.Len() == 0 {
		return Decision{}, ErrNoHandlers
	}

	classification, err := r.classifier.Classify(ctx, userInput, chat)
	if err != nil {
		r.logger.Warn().Err(err).Msg("classifier errored, routing to catch-all")
		return r.fallbackDecision()
	}

	if classification.Confidence > r.threshold && r.registry.IsRegistered(classification.Category) {
		handler, err := r.registry.Get(classification.Category)
		if err == nil {
			r.logger.Debug().
				Str("category", classification.Category).
				Float64("confidence", classification.Confidence).
				Msg("routed to classified handler")
			return Decision{Handler: handler, Classification: classification}, nil
		}
	}

	r.logger.Debug().
		Str("category", classification.Category).
		Float64("confidence", classification.Confidence).
		Float64("threshold", r.threshold).
		Msg("classification below threshold or unroutable, routing to catch-all")
	return r.fallbackDecision()
}

// fallbackDecision resolves the catch-all handler. The catch-all must
// always be registered; its absence is a setup error.
func (r *TaskRouter) fallbackDecision() (Decision, error) {
	handler, err := r.registry.Get(classify.CategoryOther)
	if err != nil {
		return Decision{}, fmt.Errorf("catch-all handler missing: %w", err)
	}
	return Decision{Handler: handler, Classification: classify.Fallback()}, nil
}

// AddHandler registers a handler factory, for test and extension
// scenarios.
func (r *TaskRouter) AddHandler(factory handlers.Factory, taskType string) error {
	return r.registry.Register(factory, taskType)
}

// RemoveHandler unregisters a task type, erroring when it is absent.
func (r *TaskRouter) RemoveHandler(taskType string) error {
	return r.registry.Unregister(taskType)
}

// GetHandler retrieves the handler for taskType, erroring when absent.
func (r *TaskRouter) GetHandler(taskType string) (handlers.Handler, error) {
	return r.registry.Get(taskType)
}

// ListHandlers lists all registered task types.
func (r *TaskRouter) ListHandlers() []string {
	return r.registry.List()
}
