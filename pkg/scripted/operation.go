package scripted

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/soapd/pkg/config"
	"github.com/getmockd/soapd/pkg/soap"
)

type output struct {
	name    string
	kind    soap.Kind
	program *vm.Program
}

type fault struct {
	when  *vm.Program
	fault soap.Fault
}

// handler evaluates compiled outputs. It holds no mutable state, so calls
// may run concurrently.
type handler struct {
	name    string
	inputs  []soap.Param
	outputs []output
	fault   *fault
}

// Build compiles one operation definition.
func Build(cfg config.OperationConfig, c *Compiler) (*soap.Operation, error) {
	if c == nil {
		c = NewCompiler()
	}

	h := &handler{name: cfg.Name}
	env := make(map[string]any, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		kind, err := in.Kind()
		if err != nil {
			return nil, fmt.Errorf("operation %s: input %s: %w", cfg.Name, in.Name, err)
		}
		h.inputs = append(h.inputs, soap.P(in.Name, kind))
		env[in.Name] = soap.Zero(kind).Interface()
	}

	var outParams []soap.Param
	for _, out := range cfg.Outputs {
		kind, err := out.Kind()
		if err != nil {
			return nil, fmt.Errorf("operation %s: output %s: %w", cfg.Name, out.Name, err)
		}
		program, err := c.Compile(out.Expr, env, false)
		if err != nil {
			return nil, fmt.Errorf("operation %s: output %s: %w", cfg.Name, out.Name, err)
		}
		h.outputs = append(h.outputs, output{name: out.Name, kind: kind, program: program})
		outParams = append(outParams, soap.P(out.Name, kind))
	}

	if fc := cfg.Fault; fc != nil {
		code, err := fc.FaultCode()
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", cfg.Name, err)
		}
		h.fault = &fault{fault: soap.Fault{Code: code, String: fc.String, Actor: fc.Actor, Detail: fc.Detail}}
		if fc.When != "" {
			if h.fault.when, err = c.Compile(fc.When, env, true); err != nil {
				return nil, fmt.Errorf("operation %s: fault: %w", cfg.Name, err)
			}
		}
	}

	return &soap.Operation{
		Name:    cfg.Name,
		Doc:     cfg.Doc,
		Inputs:  h.inputs,
		Outputs: outParams,
		Handler: h,
	}, nil
}

// BuildAll compiles every definition, reporting all failures together.
func BuildAll(cfgs []config.OperationConfig, c *Compiler) ([]*soap.Operation, error) {
	if c == nil {
		c = NewCompiler()
	}
	ops := make([]*soap.Operation, 0, len(cfgs))
	var errs []error
	for _, cfg := range cfgs {
		op, err := Build(cfg, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ops = append(ops, op)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ops, nil
}

// Invoke implements soap.Handler.
func (h *handler) Invoke(ctx context.Context, in soap.Args) (soap.Args, error) {
	env := make(map[string]any, len(h.inputs))
	for _, p := range h.inputs {
		v, ok := in.Get(p.Name)
		if !ok {
			v = p.Shape
		}
		env[p.Name] = v.Interface()
	}

	if h.fault != nil {
		raise := true
		if h.fault.when != nil {
			res, err := expr.Run(h.fault.when, env)
			if err != nil {
				return nil, fmt.Errorf("eval fault condition: %w", err)
			}
			raise, _ = res.(bool)
		}
		if raise {
			f := h.fault.fault
			return nil, &f
		}
	}

	out := &soap.Fields{}
	for _, o := range h.outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := expr.Run(o.program, env)
		if err != nil {
			return nil, fmt.Errorf("eval %s: %w", o.name, err)
		}
		v, err := ToValue(res, o.kind)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", o.name, err)
		}
		out.Set(o.name, v)
	}
	return out, nil
}
