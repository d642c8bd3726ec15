package soap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func addOperation() *Operation {
	return &Operation{
		Name:    "Add",
		Inputs:  []Param{P("a", KindInt), P("b", KindInt)},
		Outputs: []Param{P("sum", KindInt)},
		Handler: HandlerFunc(func(_ context.Context, in Args) (Args, error) {
			a, _ := in.Get("a")
			b, _ := in.Get("b")
			return NewFields(Field{Name: "sum", Value: Int(int32(a.Int64() + b.Int64()))}), nil
		}),
	}
}

func request(op string, args map[string]string) Request {
	req := Request{Operation: op, Args: make(map[string]Value)}
	for k, v := range args {
		req.Args[k] = String(v)
	}
	return req
}

func TestDispatch_Success(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(addOperation())
	d := NewDispatcher(reg)

	resp := d.Dispatch(context.Background(), request("Add", map[string]string{"a": "2", "b": "3"}))
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	sum, ok := resp.Results.Get("sum")
	if !ok {
		t.Fatal("sum missing")
	}
	if sum.Kind() != KindInt || sum.Int64() != 5 {
		t.Errorf("sum = %v %d, want int 5", sum.Kind(), sum.Int64())
	}
}

func TestDispatch_NotFound(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	for _, name := range []string{"Missing", "Other_Op"} {
		resp := d.Dispatch(context.Background(), request(name, nil))
		if !resp.IsFault() {
			t.Fatalf("%s: expected fault", name)
		}
		f := resp.Fault
		if f.Code != FaultClient {
			t.Errorf("code = %v, want Client", f.Code)
		}
		if !strings.Contains(f.String, name) {
			t.Errorf("fault string %q does not name the operation", f.String)
		}
		if f.String != fmt.Sprintf("Operation %q is not defined for this service", name) {
			t.Errorf("fault string = %q", f.String)
		}
		if f.Actor != "" || f.Detail != "" {
			t.Errorf("expected empty actor/detail, got %q/%q", f.Actor, f.Detail)
		}
		if resp.Results != nil {
			t.Error("fault response carries results")
		}
	}
}

func TestDispatch_MissingArgument(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(addOperation())

	resp := NewDispatcher(reg).Dispatch(context.Background(), request("Add", map[string]string{"a": "1"}))
	if !resp.IsFault() || resp.Fault.Code != FaultClient {
		t.Fatalf("expected Client fault, got %+v", resp)
	}
	if !strings.Contains(resp.Fault.String, `"b"`) {
		t.Errorf("fault does not name the missing argument: %q", resp.Fault.String)
	}
}

func TestDispatch_InvalidArgument(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(addOperation())

	resp := NewDispatcher(reg).Dispatch(context.Background(), request("Add", map[string]string{"a": "1", "b": "three"}))
	if !resp.IsFault() || resp.Fault.Code != FaultClient {
		t.Fatalf("expected Client fault, got %+v", resp)
	}
	if !strings.Contains(resp.Fault.String, "Invalid argument") {
		t.Errorf("fault string = %q", resp.Fault.String)
	}
}

func TestDispatch_UndeclaredArgumentsIgnored(t *testing.T) {
	var seen int
	reg := NewRegistry()
	reg.MustRegister(&Operation{
		Name:   "Count",
		Inputs: []Param{P("a", KindString)},
		Handler: HandlerFunc(func(_ context.Context, in Args) (Args, error) {
			seen = in.Len()
			return nil, nil
		}),
	})

	resp := NewDispatcher(reg).Dispatch(context.Background(), request("Count", map[string]string{"a": "1", "extra": "2"}))
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	if seen != 1 {
		t.Errorf("handler saw %d inputs, want 1", seen)
	}
	if resp.Results.Len() != 0 {
		t.Errorf("expected no results, got %d", resp.Results.Len())
	}
}

func TestDispatch_HandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		mask       bool
		wantCode   FaultCode
		wantString string
	}{
		{"plain error", errors.New("database down"), false, FaultServer, "database down"},
		{"masked error", errors.New("database down"), true, FaultServer, `Operation "Fail" failed`},
		{"fault", ClientFault("bad input").WithDetail("field a"), false, FaultClient, "bad input"},
		{"wrapped fault", fmt.Errorf("validate: %w", ClientFault("nope")), true, FaultClient, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.MustRegister(&Operation{
				Name: "Fail",
				Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
					return nil, tt.err
				}),
			})

			var opts []DispatcherOption
			if tt.mask {
				opts = append(opts, WithMaskedErrors())
			}
			resp := NewDispatcher(reg, opts...).Dispatch(context.Background(), request("Fail", nil))
			if !resp.IsFault() {
				t.Fatal("expected fault")
			}
			if resp.Fault.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", resp.Fault.Code, tt.wantCode)
			}
			if resp.Fault.String != tt.wantString {
				t.Errorf("string = %q, want %q", resp.Fault.String, tt.wantString)
			}
		})
	}
}

func TestDispatch_PanicBecomesServerFault(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Operation{
		Name: "Boom",
		Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
			panic("kaboom")
		}),
	})

	resp := NewDispatcher(reg).Dispatch(context.Background(), request("Boom", nil))
	if !resp.IsFault() || resp.Fault.Code != FaultServer {
		t.Fatalf("expected Server fault, got %+v", resp)
	}
	if strings.Contains(resp.Fault.String, "kaboom") {
		t.Errorf("panic value leaked into fault: %q", resp.Fault.String)
	}
}

func TestDispatch_ResultsFollowDeclaredOutputs(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Operation{
		Name:    "Split",
		Outputs: []Param{P("first", KindString), P("second", KindString)},
		Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
			return NewFields(
				Field{Name: "internal", Value: String("hidden")},
				Field{Name: "second", Value: String("2")},
				Field{Name: "first", Value: String("1")},
			), nil
		}),
	})

	resp := NewDispatcher(reg).Dispatch(context.Background(), request("Split", nil))
	list := resp.Results.List()
	if len(list) != 2 || list[0].Name != "first" || list[1].Name != "second" {
		t.Errorf("results = %+v, want first, second", list)
	}
}

func TestDispatch_ResultsTakeDeclaredKinds(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Operation{
		Name:    "Count",
		Outputs: []Param{P("n", KindInt), P("ok", KindBoolean)},
		Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
			return NewFields(
				Field{Name: "n", Value: String("5")},
				Field{Name: "ok", Value: String("true")},
			), nil
		}),
	})
	reg.MustRegister(&Operation{
		Name:    "Bad",
		Outputs: []Param{P("n", KindInt)},
		Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
			return NewFields(Field{Name: "n", Value: String("five")}), nil
		}),
	})
	d := NewDispatcher(reg)

	resp := d.Dispatch(context.Background(), request("Count", nil))
	if resp.IsFault() {
		t.Fatalf("unexpected fault: %v", resp.Fault)
	}
	n, _ := resp.Results.Get("n")
	if n.Kind() != KindInt || n.Int64() != 5 {
		t.Errorf("n = %v %q, want int 5", n.Kind(), Lexical(n))
	}
	ok, _ := resp.Results.Get("ok")
	if ok.Kind() != KindBoolean || !ok.Bool() {
		t.Errorf("ok = %v %q, want boolean true", ok.Kind(), Lexical(ok))
	}

	resp = d.Dispatch(context.Background(), request("Bad", nil))
	if !resp.IsFault() {
		t.Fatalf("expected fault, got %+v", resp.Results.List())
	}
	if resp.Fault.Code != FaultServer {
		t.Errorf("code = %v, want Server", resp.Fault.Code)
	}
	if !strings.Contains(resp.Fault.String, `"n"`) {
		t.Errorf("fault string %q does not name the output", resp.Fault.String)
	}
}

func TestDispatch_ReplacedHandlerNotInvoked(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg)

	var oldCalls int
	reg.MustRegister(&Operation{Name: "Op", Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
		oldCalls++
		return nil, nil
	})})
	reg.MustRegister(&Operation{Name: "Op", Handler: HandlerFunc(func(context.Context, Args) (Args, error) {
		return nil, nil
	})})

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), request("Op", nil))
	}
	if oldCalls != 0 {
		t.Errorf("replaced handler invoked %d times", oldCalls)
	}
}

// Two calls must be able to run their handlers at the same time.
func TestDispatch_HandlersRunConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	blocking := HandlerFunc(func(context.Context, Args) (Args, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	})

	reg := NewRegistry()
	reg.MustRegister(
		&Operation{Name: "A", Handler: blocking},
		&Operation{Name: "B", Handler: blocking},
	)
	d := NewDispatcher(reg)

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			d.Dispatch(context.Background(), request(name, nil))
		}(name)
	}

	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-timeout:
			close(release)
			t.Fatal("handlers were serialized")
		}
	}
	close(release)
	wg.Wait()
}

func TestDispatch_ConcurrentCallsIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(addOperation())
	d := NewDispatcher(reg)

	var wg sync.WaitGroup
	errs := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := d.Dispatch(context.Background(), request("Add", map[string]string{
				"a": fmt.Sprint(i), "b": fmt.Sprint(i),
			}))
			sum, _ := resp.Results.Get("sum")
			if sum.Int64() != int64(2*i) {
				errs <- fmt.Sprintf("call %d: sum = %d", i, sum.Int64())
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestDispatchAll(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(addOperation())

	resps := NewDispatcher(reg).DispatchAll(context.Background(), []Request{
		request("Add", map[string]string{"a": "1", "b": "1"}),
		request("Nope", nil),
	})
	if len(resps) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resps))
	}
	if resps[0].IsFault() || !resps[1].IsFault() {
		t.Errorf("unexpected outcomes: %+v", resps)
	}
}
