package soap

import (
	"fmt"
	"sync"
)

// Error is a string error type so sentinels can be constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors returned by the Registry.
const (
	// ErrNilOperation is returned when registering a nil operation.
	ErrNilOperation = Error("operation cannot be nil")

	// ErrEmptyOperationName is returned when an operation has no name.
	ErrEmptyOperationName = Error("operation name cannot be empty")

	// ErrNilHandler is returned when an operation has no handler.
	ErrNilHandler = Error("operation handler cannot be nil")

	// ErrOperationNotFound is returned when unregistering an unknown operation.
	ErrOperationNotFound = Error("operation not found")
)

// Registry maps operation names to operations.
// It is thread-safe and can be used concurrently.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]*Operation
	order      []string
	generation uint64
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]*Operation),
	}
}

// Register adds op, replacing any operation with the same name.
// A replaced operation keeps its original position.
func (r *Registry) Register(op *Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	if op.Name == "" {
		return ErrEmptyOperationName
	}
	if op.Handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, op.Name)
	}

	stored := cloneOperation(op)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[op.Name]; !exists {
		r.order = append(r.order, op.Name)
	}
	r.operations[op.Name] = stored
	r.generation++
	return nil
}

// cloneOperation copies op so callers cannot mutate a registered operation.
func cloneOperation(op *Operation) *Operation {
	return &Operation{
		Name:    op.Name,
		Doc:     op.Doc,
		Inputs:  append([]Param(nil), op.Inputs...),
		Outputs: append([]Param(nil), op.Outputs...),
		Handler: op.Handler,
	}
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ops ...*Operation) {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
}

// Unregister removes an operation by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[name]; !exists {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, name)
	}
	delete(r.operations, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.generation++
	return nil
}

// Replace atomically swaps the whole operation set, keeping the order of ops.
func (r *Registry) Replace(ops []*Operation) error {
	next := make(map[string]*Operation, len(ops))
	order := make([]string, 0, len(ops))
	for _, op := range ops {
		if op == nil {
			return ErrNilOperation
		}
		if op.Name == "" {
			return ErrEmptyOperationName
		}
		if op.Handler == nil {
			return fmt.Errorf("%w: %s", ErrNilHandler, op.Name)
		}
		if _, dup := next[op.Name]; !dup {
			order = append(order, op.Name)
		}
		next[op.Name] = cloneOperation(op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = next
	r.order = order
	r.generation++
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operations[name]
	return op, ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operations)
}

// Generation changes on every successful mutation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Snapshot is a point-in-time copy of the registry's metadata.
type Snapshot struct {
	Generation uint64
	Operations []OperationInfo
}

// Snapshot returns the operations in registration order.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]OperationInfo, 0, len(r.order))
	for _, name := range r.order {
		ops = append(ops, r.operations[name].Info())
	}
	return Snapshot{Generation: r.generation, Operations: ops}
}
