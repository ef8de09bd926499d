package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/unfolding"
)

// CallbackType defines the lifecycle points of a run where callbacks execute.
//
// Callbacks are executed synchronously and can influence execution flow by
// returning errors that abort the run.
type CallbackType string

const (
	// CallbackBeforeExecute is triggered before the session executes the
	// transition of an event for the first time.
	CallbackBeforeExecute CallbackType = "before_execute"

	// CallbackAfterExecute is triggered after the one execution of an event.
	CallbackAfterExecute CallbackType = "after_execute"

	// CallbackOnMaximal is triggered for every maximal configuration.
	CallbackOnMaximal CallbackType = "on_maximal"

	// CallbackOnDefect is triggered for every defect found.
	CallbackOnDefect CallbackType = "on_defect"

	// CallbackOnAlternative is triggered when an alternative is found.
	CallbackOnAlternative CallbackType = "on_alternative"

	// CallbackOnRetire is triggered when an event is moved to the retired set.
	CallbackOnRetire CallbackType = "on_retire"
)

// CallbackContext carries the information available to a callback. Fields
// that do not apply to a callback type are left zero.
type CallbackContext struct {
	// RunID identifies the verification run.
	RunID string

	// Program is the name of the program under test.
	Program string

	// Event is the event executed, retired or explored.
	Event *unfolding.Event

	// Configuration is the configuration the callback refers to.
	Configuration unfolding.EventSet

	// Alternative is the alternative found (CallbackOnAlternative).
	Alternative unfolding.EventSet

	// Trace is the reported execution (CallbackOnMaximal, CallbackOnDefect).
	Trace *core.Trace

	// Err is the defect (CallbackOnDefect).
	Err error

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for run lifecycle hooks.
//
// Callbacks run synchronously inside the search loop, so they should be fast.
// Returning an error aborts the run.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	counter := NewFunctionCallback(
//	    CallbackOnMaximal,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        log.Printf("maximal: %s", cc.Trace)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager orchestrates callback execution throughout a run.
//
// Callbacks are executed in registration order, and any callback returning
// an error stops execution of subsequent callbacks.
//
// The CallbackManager is not safe for concurrent registration. Once
// registration is complete, callback execution is safe for concurrent use.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// HasCallbacks reports whether any callback handles callbackType.
func (cm *CallbackManager) HasCallbacks(callbackType CallbackType) bool {
	return cm != nil && len(cm.callbacks[callbackType]) > 0
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
// The first error stops execution and is returned wrapped with the type.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil // No callbacks registered for this type
	}

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return fmt.Errorf("%s callback: %w", callbackType, err)
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackOnRetire, func(m string) { log.Print(m) })
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event with run and event details.
func (c *LoggingCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	msg := fmt.Sprintf("[%s] run=%s program=%s", c.callbackType, callbackCtx.RunID, callbackCtx.Program)
	if callbackCtx.Event != nil {
		msg += fmt.Sprintf(" event=%s", callbackCtx.Event)
	}
	if callbackCtx.Trace != nil {
		msg += fmt.Sprintf(" trace=%s", callbackCtx.Trace)
	}
	if callbackCtx.Err != nil {
		msg += fmt.Sprintf(" error=%v", callbackCtx.Err)
	}
	c.logger(msg)
	return nil
}

// InvariantCallback checks every configuration reported as maximal with a
// predicate over its trace. A failing predicate aborts the run.
//
// Example:
//
//	callback := NewInvariantCallback(func(t core.Trace) error {
//	    if t.Len() > 100 {
//	        return errors.New("execution too long")
//	    }
//	    return nil
//	})
type InvariantCallback struct {
	check func(trace core.Trace) error
}

// NewInvariantCallback creates a new trace invariant callback.
func NewInvariantCallback(check func(trace core.Trace) error) *InvariantCallback {
	return &InvariantCallback{check: check}
}

// Type returns CallbackOnMaximal.
func (c *InvariantCallback) Type() CallbackType {
	return CallbackOnMaximal
}

// Execute runs the predicate on the reported trace.
func (c *InvariantCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.check != nil && callbackCtx.Trace != nil {
		return c.check(*callbackCtx.Trace)
	}
	return nil
}
