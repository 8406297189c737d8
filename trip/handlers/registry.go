package handlers

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Registry configuration mistakes are programming errors and surface
// immediately rather than being absorbed into fallbacks.
var (
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrHandlerNotFound  = errors.New("no handler registered")
)

// Factory constructs a handler. Instantiation is deferred until first
// retrieval; every Get for a task type returns the same instance.
type Factory func() Handler

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	TaskType    string `json:"task_type"`
	Description string `json:"description"`
}

// Registry is an explicit, caller-owned catalog of handler factories.
// It is constructed once at process start and passed by reference into
// the router; there is no process-wide implicit instance.
type Registry struct {
	factories map[string]Factory
	instances map[string]Handler
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Handler),
		logger:    logger.With().Str("component", "handler_registry").Logger(),
	}
}

// Register adds a handler factory. taskType overrides the handler's
// own task type when non-empty. Registering a duplicate key is an
// error, not a silent overwrite.
func (r *Registry) Register(factory Factory, taskType string) error {
	probe := factory()
	if taskType == "" {
		taskType = probe.TaskType()
	}

	if _, exists := r.factories[taskType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, taskType)
	}

	r.factories[taskType] = factory
	r.logger.Info().
		Str("task_type", taskType).
		Str("description", probe.Description()).
		Msg("handler registered")
	return nil
}

// Unregister removes a handler by task type, erroring when the type
// is unknown.
func (r *Registry) Unregister(taskType string) error {
	if _, exists := r.factories[taskType]; !exists {
		return fmt.Errorf("%w for task type: %s", ErrHandlerNotFound, taskType)
	}
	delete(r.factories, taskType)
	delete(r.instances, taskType)
	r.logger.Info().Str("task_type", taskType).Msg("handler unregistered")
	return nil
}

// Get returns the singleton instance for taskType, creating it on
// first access.
func (r *Registry) Get(taskType string) (Handler, error) {
	if _, exists := r.factories[taskType]; !exists {
		return nil, fmt.Errorf("%w for task type: %s", ErrHandlerNotFound, taskType)
	}
	if instance, ok := r.instances[taskType]; ok {
		return instance, nil
	}
	instance := r.factories[taskType]()
	r.instances[taskType] = instance
	r.logger.Debug().Str("task_type", taskType).Msg("handler instance created")
	return instance, nil
}

// List returns all registered task types, sorted.
func (r *Registry) List() []string {
	types := make([]string, 0, len(r.factories))
	for taskType := range r.factories {
		types = append(types, taskType)
	}
	sort.Strings(types)
	return types
}

// CreateAll instantiates every registered handler, in List order.
func (r *Registry) CreateAll() []Handler {
	all := make([]Handler, 0, len(r.factories))
	for _, taskType := range r.List() {
		handler, err := r.Get(taskType)
		if err != nil {
			continue
		}
		all = append(all, handler)
	}
	return all
}

// IsRegistered reports whether taskType has a handler.
func (r *Registry) IsRegistered(taskType string) bool {
	_, exists := r.factories[taskType]
	return exists
}

// Len reports the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.factories)
}

// Info describes the handler registered for taskType.
func (r *Registry) Info(taskType string) (HandlerInfo, error) {
	handler, err := r.Get(taskType)
	if err != nil {
		return HandlerInfo{}, err
	}
	return HandlerInfo{TaskType: handler.TaskType(), Description: handler.Description()}, nil
}
