package soap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getmockd/soapd/pkg/logging"
)

// Defaults applied by NewEngine.
const (
	DefaultNamespace   = "server"
	DefaultServiceName = "Service"
	DefaultMaxBodySize = 10 << 20 // 10MB
)

// Observer receives per-call measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveCall is called once per dispatched invocation.
	ObserveCall(operation string, fault *Fault, elapsed time.Duration)

	// ObserveMalformed is called for every rejected envelope.
	ObserveMalformed()
}

// Options configures an Engine.
type Options struct {
	// Namespace is the service namespace. A value without a scheme is
	// advertised as "urn:<Namespace>".
	Namespace string

	// ServiceName names the service, port type and binding in the WSDL.
	ServiceName string

	// BaseURI is the endpoint address advertised in the WSDL.
	BaseURI string

	// LegacyTypes declares every value as xsd:string on the wire and in
	// the WSDL.
	LegacyTypes bool

	// MaskErrors hides handler error text from Server faults.
	MaskErrors bool

	// MaxBodySize bounds HTTP request bodies. Defaults to 10MB.
	MaxBodySize int64

	// MaxDepth bounds element nesting inside an invocation.
	MaxDepth int

	// Logger defaults to logging.Nop().
	Logger *slog.Logger

	// Observer is optional.
	Observer Observer
}

// Exchange is a transport-neutral incoming request.
type Exchange struct {
	Path    string
	Query   url.Values
	Method  string
	Headers http.Header
	Body    io.Reader
}

// Reply is the engine's answer to an Exchange.
type Reply struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Engine ties the reader, dispatcher, writer and WSDL generator together
// around one registry.
type Engine struct {
	opts       Options
	tns        string
	registry   *Registry
	reader     *Reader
	dispatcher *Dispatcher
	writer     *Writer
	wsdl       *WSDL
	logger     *slog.Logger
}

// NewEngine creates an engine with an empty registry.
func NewEngine(opts Options) *Engine {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	e := &Engine{
		opts:     opts,
		tns:      TargetNamespace(opts.Namespace),
		registry: NewRegistry(),
		logger:   opts.Logger,
	}

	e.reader = NewReader(WithMaxDepth(opts.MaxDepth))

	dopts := []DispatcherOption{WithDispatchLogger(opts.Logger)}
	if opts.MaskErrors {
		dopts = append(dopts, WithMaskedErrors())
	}
	e.dispatcher = NewDispatcher(e.registry, dopts...)

	var wopts []WriterOption
	if opts.LegacyTypes {
		wopts = append(wopts, WithLegacyTypes())
	}
	e.writer = NewWriter(e.tns, wopts...)

	e.wsdl = NewWSDL(e.registry, WSDLConfig{
		Service:         opts.ServiceName,
		TargetNamespace: e.tns,
		BaseURI:         opts.BaseURI,
		LegacyTypes:     opts.LegacyTypes,
	})
	return e
}

// Registry returns the engine's operation registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Register adds an operation.
func (e *Engine) Register(op *Operation) error { return e.registry.Register(op) }

// TargetNamespace returns the advertised namespace URI.
func (e *Engine) TargetNamespace() string { return e.tns }

// WSDL returns the service description for the current operations.
func (e *Engine) WSDL() ([]byte, error) { return e.wsdl.Document() }

// Call parses an envelope, dispatches every invocation and renders the reply
// envelope. The error is non-nil only when the envelope is malformed.
func (e *Engine) Call(ctx context.Context, body io.Reader) ([]byte, []Response, error) {
	logger := logging.FromContext(ctx, e.logger)

	reqs, err := e.reader.Read(body)
	if err != nil {
		if e.opts.Observer != nil {
			e.opts.Observer.ObserveMalformed()
		}
		logger.Info("rejected envelope", "error", err)
		return nil, nil, err
	}

	resps := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		start := time.Now()
		resp := e.dispatcher.Dispatch(ctx, req)
		elapsed := time.Since(start)

		if e.opts.Observer != nil {
			e.opts.Observer.ObserveCall(req.Operation, resp.Fault, elapsed)
		}
		if resp.Fault != nil {
			logger.Warn("operation fault",
				"operation", req.Operation,
				"code", resp.Fault.Code.String(),
				"fault", resp.Fault.String,
			)
		} else {
			logger.Debug("operation completed", "operation", req.Operation, "duration", elapsed)
		}
		resps = append(resps, resp)
	}

	out, err := e.writer.Marshal(resps...)
	if err != nil {
		return nil, resps, err
	}
	return out, resps, nil
}

// Handle serves one exchange. The schema route is selected by a "wsdl"
// query key in any case; everything else is an envelope.
func (e *Engine) Handle(ctx context.Context, ex *Exchange) *Reply {
	if wantsWSDL(ex.Query) {
		return e.handleWSDL(ex)
	}

	if ex.Method != "" && ex.Method != http.MethodPost {
		return textReply(http.StatusMethodNotAllowed, "Method not allowed")
	}

	if action := strings.Trim(ex.Headers.Get("SOAPAction"), `"`); action != "" {
		logging.FromContext(ctx, e.logger).Debug("soap action", "action", action)
	}

	body := ex.Body
	if body == nil {
		body = strings.NewReader("")
	}
	out, _, err := e.Call(ctx, body)
	if err != nil {
		var malformed *MalformedError
		if errors.As(err, &malformed) {
			return e.faultReply(http.StatusBadRequest, ClientFault("Malformed envelope: %s", malformed.Reason))
		}
		logging.FromContext(ctx, e.logger).Error("failed to render response", "error", err)
		return e.faultReply(http.StatusInternalServerError, ServerFault("Failed to render response"))
	}
	return xmlReply(http.StatusOK, out)
}

func (e *Engine) handleWSDL(ex *Exchange) *Reply {
	if ex.Method != "" && ex.Method != http.MethodGet {
		return textReply(http.StatusMethodNotAllowed, "Method not allowed")
	}
	doc, err := e.wsdl.Document()
	if err != nil {
		e.logger.Error("failed to generate WSDL", "error", err)
		return textReply(http.StatusInternalServerError, "WSDL not available")
	}
	return xmlReply(http.StatusOK, doc)
}

func (e *Engine) faultReply(status int, f *Fault) *Reply {
	body, err := e.writer.MarshalFault(f)
	if err != nil {
		return textReply(http.StatusInternalServerError, f.String)
	}
	return xmlReply(status, body)
}

// ServeHTTP implements http.Handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := &Exchange{
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Method:  r.Method,
		Headers: r.Header,
	}

	if r.Method == http.MethodPost && !wantsWSDL(ex.Query) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.opts.MaxBodySize))
		defer func() { _ = r.Body.Close() }()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeReply(w, e.faultReply(http.StatusRequestEntityTooLarge,
					ClientFault("Request body exceeds %d bytes", e.opts.MaxBodySize)))
				return
			}
			writeReply(w, e.faultReply(http.StatusBadRequest, ClientFault("Failed to read request body")))
			return
		}
		ex.Body = bytes.NewReader(body)
	}

	writeReply(w, e.Handle(r.Context(), ex))
}

func writeReply(w http.ResponseWriter, reply *Reply) {
	for k, vs := range reply.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}

func wantsWSDL(q url.Values) bool {
	for key := range q {
		if strings.EqualFold(key, "wsdl") {
			return true
		}
	}
	return false
}

func xmlReply(status int, body []byte) *Reply {
	return &Reply{
		Status:  status,
		Headers: http.Header{"Content-Type": {ContentType}},
		Body:    body,
	}
}

func textReply(status int, msg string) *Reply {
	return &Reply{
		Status:  status,
		Headers: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:    []byte(msg),
	}
}
