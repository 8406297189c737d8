// Package handlers holds the catalog of specialist response
// generators and the shared machinery they are built from.
package handlers

import (
	"context"
	"time"

	"github.com/tripmate-ai/tripmate/trip/classify"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// TaskResult is the outcome of one handler execution. Handlers never
// propagate errors; execution failures surface as Success=false with
// an apologetic response, so one failing specialist cannot crash the
// turn.
type TaskResult struct {
	Success     bool           `json:"success"`
	Response    string         `json:"response"`
	TaskType    string         `json:"task_type"`
	Confidence  float64        `json:"confidence"`
	Metadata    map[string]any `json:"metadata"`
	Suggestions []string       `json:"suggestions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Handler is one specialist response generator bound to a task
// category. Polymorphic over prompt construction and processing only;
// variants are registered, not inherited.
type Handler interface {
	TaskType() string
	Description() string
	BuildPrompt(userInput string, chat genports.ChatContext, tags classify.Tags) string
	Process(ctx context.Context, userInput string, chat genports.ChatContext, tags classify.Tags) TaskResult
}
