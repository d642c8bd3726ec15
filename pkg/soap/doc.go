// Package soap implements an RPC-style SOAP 1.1 server engine.
//
// An Engine owns a Registry of operations. Each incoming envelope is read
// by a streaming Reader into Requests, bound and invoked by the Dispatcher,
// and rendered by a Writer. The WSDL generator describes the registered
// operations and caches its output until the registry changes.
//
// # Basic Usage
//
//	engine := soap.NewEngine(soap.Options{
//	    Namespace: "calculator",
//	    BaseURI:   "http://localhost:8080/soap",
//	})
//
//	engine.Registry().MustRegister(&soap.Operation{
//	    Name:    "Add",
//	    Inputs:  []soap.Param{soap.P("a", soap.KindInt), soap.P("b", soap.KindInt)},
//	    Outputs: []soap.Param{soap.P("sum", soap.KindInt)},
//	    Handler: soap.HandlerFunc(func(ctx context.Context, in soap.Args) (soap.Args, error) {
//	        a, _ := in.Get("a")
//	        b, _ := in.Get("b")
//	        return soap.NewFields(soap.Field{Name: "sum", Value: soap.Int(int32(a.Int64() + b.Int64()))}), nil
//	    }),
//	})
//
//	http.Handle("/soap", engine)
//
// # Faults
//
// Handlers report failures by returning an error. A *Fault is rendered
// as-is; any other error becomes a Server fault. Unknown operations and
// missing or invalid arguments produce Client faults. Envelopes that cannot
// be read yield a *MalformedError and, over HTTP, a 400 reply.
//
// # WSDL
//
// Requests carrying a "wsdl" query key (any case) are answered with the
// generated service description.
package soap
