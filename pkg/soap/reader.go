package soap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrMalformed is wrapped by every envelope parse failure.
var ErrMalformed = errors.New("malformed envelope")

// MalformedError describes why an envelope was rejected.
type MalformedError struct {
	Reason string
	Offset int64
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrMalformed, e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// DefaultMaxDepth bounds element nesting inside an operation invocation.
const DefaultMaxDepth = 64

type readState int

const (
	stateStart readState = iota
	stateDeclaration
	stateEnvelope
	stateBody
	stateAfterBody
	stateDone
)

// Reader turns envelopes into requests. It keeps no per-call state and is
// safe for concurrent use.
type Reader struct {
	maxDepth int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxDepth limits element nesting inside an invocation.
func WithMaxDepth(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// NewReader creates a Reader.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRequests parses one envelope with default settings.
func ReadRequests(src io.Reader) ([]Request, error) {
	return NewReader().Read(src)
}

// splitTag splits "ns:local" into its prefix and local name.
func splitTag(tag string) (namespace, local string) {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[:i], tag[i+1:]
	}
	return "", tag
}

// envelopeScan is the state of a single Read call.
// byteOrderMark may precede the XML declaration.
const byteOrderMark = "\ufeff"

type envelopeScan struct {
	dec      *xml.Decoder
	maxDepth int
	state    readState
	requests []Request
}

// Read consumes one envelope and returns the invocations in its Body.
// It never returns a partial result: on failure the error is a *MalformedError.
func (r *Reader) Read(src io.Reader) ([]Request, error) {
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel

	s := &envelopeScan{dec: dec, maxDepth: r.maxDepth}
	if err := s.run(); err != nil {
		return nil, err
	}
	if s.requests == nil {
		return []Request{}, nil
	}
	return s.requests, nil
}

func (s *envelopeScan) malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...), Offset: s.dec.InputOffset()}
}

func (s *envelopeScan) next() (xml.Token, error) {
	tok, err := s.dec.RawToken()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, s.malformed("%v", err)
	}
	return tok, nil
}

func (s *envelopeScan) run() error {
	for {
		tok, err := s.next()
		if err == io.EOF {
			if s.state != stateDone {
				return s.malformed("unexpected end of document")
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target != "xml" {
				continue
			}
			if s.state != stateStart {
				return s.malformed("unexpected XML declaration")
			}
			s.state = stateDeclaration
		case xml.Directive:
			return s.malformed("directives are not allowed")
		case xml.StartElement:
			if err := s.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if err := s.end(t); err != nil {
				return err
			}
		case xml.CharData:
			text := string(t)
			if s.state == stateStart {
				text = strings.TrimPrefix(text, byteOrderMark)
			}
			if s.state != stateBody && len(strings.TrimSpace(text)) > 0 {
				return s.malformed("unexpected text outside of Body")
			}
		}
	}
}

func (s *envelopeScan) start(t xml.StartElement) error {
	ns, local := splitTag(qualified(t.Name))
	switch s.state {
	case stateStart, stateDeclaration:
		if local != "Envelope" {
			return s.malformed("expected Envelope, got <%s>", qualified(t.Name))
		}
		s.state = stateEnvelope
	case stateEnvelope:
		switch local {
		case "Body":
			s.state = stateBody
		case "Header":
			return s.skip()
		default:
			return s.malformed("expected Body, got <%s>", qualified(t.Name))
		}
	case stateBody:
		req, err := s.invocation(ns, local)
		if err != nil {
			return err
		}
		s.requests = append(s.requests, req)
	default:
		return s.malformed("unexpected <%s> after Body", qualified(t.Name))
	}
	return nil
}

func (s *envelopeScan) end(t xml.EndElement) error {
	_, local := splitTag(qualified(t.Name))
	switch {
	case s.state == stateBody && local == "Body":
		s.state = stateAfterBody
	case s.state == stateAfterBody && local == "Envelope":
		s.state = stateDone
	case s.state == stateEnvelope && local == "Envelope":
		return s.malformed("envelope has no Body")
	default:
		return s.malformed("unexpected </%s>", qualified(t.Name))
	}
	return nil
}

// skip discards the subtree of an element whose start tag was just read.
func (s *envelopeScan) skip() error {
	depth := 1
	for depth > 0 {
		tok, err := s.next()
		if err == io.EOF {
			return s.malformed("unexpected end of document in Header")
		}
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth > s.maxDepth {
				return s.malformed("nesting deeper than %d", s.maxDepth)
			}
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// invocation reads arguments until the end tag named after the operation.
func (s *envelopeScan) invocation(ns, name string) (Request, error) {
	req := Request{Operation: name, Namespace: ns, Args: make(map[string]Value)}

	var (
		current string
		text    strings.Builder
		depth   int
	)
	for {
		tok, err := s.next()
		if err == io.EOF {
			return Request{}, s.malformed("unexpected end of document in <%s>", name)
		}
		if err != nil {
			return Request{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > s.maxDepth {
				return Request{}, s.malformed("nesting deeper than %d", s.maxDepth)
			}
			_, current = splitTag(qualified(t.Name))
			text.Reset()
		case xml.CharData:
			if current == "" {
				continue
			}
			text.Write(t)
			if v := strings.TrimSpace(text.String()); v != "" {
				req.Args[current] = String(v)
			}
		case xml.EndElement:
			depth--
			_, local := splitTag(qualified(t.Name))
			if depth < 0 {
				if local != name {
					return Request{}, s.malformed("expected </%s>, got </%s>", name, qualified(t.Name))
				}
				return req, nil
			}
			if local == current {
				current = ""
				text.Reset()
			}
		case xml.Directive:
			return Request{}, s.malformed("directives are not allowed")
		}
	}
}

// qualified rebuilds the raw "prefix:local" tag from a RawToken name.
func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
