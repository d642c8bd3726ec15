package soap

import "context"

// Args carries bound inputs to a handler and results back from it.
type Args = *Fields

// Handler executes an operation. Implementations must be safe for concurrent use:
// the dispatcher does not serialize calls.
type Handler interface {
	Invoke(ctx context.Context, in Args) (Args, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, in Args) (Args, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, in Args) (Args, error) {
	return f(ctx, in)
}

// Param is a named, typed slot of an operation's input or output message.
// Shape is a value whose kind is the declared type; complex shapes list
// their declared members.
type Param struct {
	Name  string
	Shape Value
}

// P declares a parameter of a simple kind.
func P(name string, kind Kind) Param {
	return Param{Name: name, Shape: Zero(kind)}
}

// Operation is a named remote call.
type Operation struct {
	Name    string
	Doc     string
	Inputs  []Param
	Outputs []Param
	Handler Handler
}

// OperationInfo is the handler-free description of an operation.
type OperationInfo struct {
	Name    string
	Doc     string
	Inputs  []Param
	Outputs []Param
}

// Info returns a copy of the operation's metadata.
func (o *Operation) Info() OperationInfo {
	return OperationInfo{
		Name:    o.Name,
		Doc:     o.Doc,
		Inputs:  append([]Param(nil), o.Inputs...),
		Outputs: append([]Param(nil), o.Outputs...),
	}
}

// notFoundOperation is the reserved pseudo-operation used when a request
// names an operation that is not registered.
func notFoundOperation(name string) *Operation {
	return &Operation{
		Name: name,
		Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
			return nil, ClientFault("Operation %q is not defined for this service", name)
		}),
	}
}
