package soap

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/getmockd/soapd/pkg/logging"
)

// Dispatcher binds requests to registered operations and invokes them.
// The registry is only locked for the lookup; binding happens in call-local
// storage and handlers run concurrently.
type Dispatcher struct {
	registry   *Registry
	logger     *slog.Logger
	maskErrors bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger used for handler panics and failures.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMaskedErrors hides handler error text from Server faults.
// The original error is still logged.
func WithMaskedErrors() DispatcherOption {
	return func(d *Dispatcher) { d.maskErrors = true }
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: reg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch resolves and invokes the operation named by req.
// Every failure is reported as a fault response, never as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	op, ok := d.registry.Lookup(req.Operation)
	if !ok {
		op = notFoundOperation(req.Operation)
	}

	in, fault := bind(op, &req)
	if fault != nil {
		return Response{Operation: req.Operation, Fault: fault}
	}

	out, err := d.invoke(ctx, op, in)
	if err != nil {
		return Response{Operation: req.Operation, Fault: d.toFault(op, err)}
	}
	results, fault := shapeResults(op, out)
	if fault != nil {
		d.logger.Warn("operation returned an invalid output", "operation", op.Name, "error", fault.String)
		return Response{Operation: req.Operation, Fault: fault}
	}
	return Response{Operation: req.Operation, Results: results}
}

// DispatchAll dispatches each request in order.
func (d *Dispatcher) DispatchAll(ctx context.Context, reqs []Request) []Response {
	out := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, d.Dispatch(ctx, req))
	}
	return out
}

func (d *Dispatcher) invoke(ctx context.Context, op *Operation, in Args) (out Args, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("operation panicked",
				"operation", op.Name,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			out, err = nil, ServerFault("Operation %q failed", op.Name)
		}
	}()
	return op.Handler.Invoke(ctx, in)
}

func (d *Dispatcher) toFault(op *Operation, err error) *Fault {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault
	}
	d.logger.Warn("operation failed", "operation", op.Name, "error", err)
	if d.maskErrors {
		return ServerFault("Operation %q failed", op.Name)
	}
	return ServerFault("%s", err.Error())
}

// bind builds fresh inputs for one call from the declared input shape.
func bind(op *Operation, req *Request) (Args, *Fault) {
	in := &Fields{}
	for _, p := range op.Inputs {
		v, ok := req.Args[p.Name]
		if !ok {
			return nil, ClientFault("Missing argument %q for operation %q", p.Name, op.Name)
		}
		bound, err := coerce(v, p.Shape.Kind())
		if err != nil {
			return nil, ClientFault("Invalid argument %q for operation %q: %v", p.Name, op.Name, err)
		}
		in.Set(p.Name, bound)
	}
	return in, nil
}

// coerce converts v to kind, parsing lexical forms where needed.
func coerce(v Value, kind Kind) (Value, error) {
	if v.Kind() == kind {
		return v, nil
	}
	if kind == KindComplex || v.Kind() == KindComplex {
		return Value{}, errors.New("expected " + TypeName(Zero(kind)))
	}
	return ParseValue(kind, Lexical(v))
}

// shapeResults keeps the declared outputs in declaration order, converted
// to their declared kinds.
func shapeResults(op *Operation, out Args) (*Fields, *Fault) {
	results := &Fields{}
	for _, p := range op.Outputs {
		v, ok := out.Get(p.Name)
		if !ok {
			continue
		}
		typed, err := coerce(v, p.Shape.Kind())
		if err != nil {
			return nil, ServerFault("Invalid output %q for operation %q: %v", p.Name, op.Name, err)
		}
		results.Set(p.Name, typed)
	}
	return results, nil
}
