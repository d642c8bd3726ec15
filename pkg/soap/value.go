package soap

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Kind identifies the wire type carried by a Value.
type Kind uint8

// Value kinds. The order groups kinds by family and is not part of the wire format.
const (
	KindString Kind = iota
	KindID
	KindIDRef
	KindToken
	KindNMToken
	KindLanguage
	KindNormalizedString
	KindName

	KindDate
	KindTime
	KindDateTime
	KindDuration

	KindByte
	KindShort
	KindInt
	KindLong
	KindUnsignedByte
	KindUnsignedShort
	KindUnsignedInt
	KindUnsignedLong
	KindDecimal
	KindInteger
	KindNonNegativeInteger
	KindNonPositiveInteger
	KindPositiveInteger
	KindNegativeInteger

	KindBoolean
	KindBase64Binary
	KindHexBinary
	KindAnyURI

	KindComplex
)

// ComplexTypeName is the schema type name used for complex values.
const ComplexTypeName = "SOAP-ENC:Struct"

var kindNames = [...]string{
	KindString:             "string",
	KindID:                 "ID",
	KindIDRef:              "IDREF",
	KindToken:              "token",
	KindNMToken:            "NMTOKEN",
	KindLanguage:           "language",
	KindNormalizedString:   "normalizedString",
	KindName:               "Name",
	KindDate:               "date",
	KindTime:               "time",
	KindDateTime:           "dateTime",
	KindDuration:           "duration",
	KindByte:               "byte",
	KindShort:              "short",
	KindInt:                "int",
	KindLong:               "long",
	KindUnsignedByte:       "unsignedByte",
	KindUnsignedShort:      "unsignedShort",
	KindUnsignedInt:        "unsignedInt",
	KindUnsignedLong:       "unsignedLong",
	KindDecimal:            "decimal",
	KindInteger:            "integer",
	KindNonNegativeInteger: "nonNegativeInteger",
	KindNonPositiveInteger: "nonPositiveInteger",
	KindPositiveInteger:    "positiveInteger",
	KindNegativeInteger:    "negativeInteger",
	KindBoolean:            "boolean",
	KindBase64Binary:       "base64Binary",
	KindHexBinary:          "hexBinary",
	KindAnyURI:             "anyURI",
	KindComplex:            "Struct",
}

// String returns the XML Schema local name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsStringLike reports whether the kind is carried as a lexical string.
func (k Kind) IsStringLike() bool {
	switch {
	case k <= KindDuration:
		return true
	case k == KindBase64Binary, k == KindHexBinary, k == KindAnyURI:
		return true
	}
	return false
}

func (k Kind) isSigned() bool {
	switch k {
	case KindByte, KindShort, KindInt, KindLong, KindInteger, KindNonPositiveInteger, KindNegativeInteger:
		return true
	}
	return false
}

func (k Kind) isUnsigned() bool {
	switch k {
	case KindUnsignedByte, KindUnsignedShort, KindUnsignedInt, KindUnsignedLong,
		KindNonNegativeInteger, KindPositiveInteger:
		return true
	}
	return false
}

func (k Kind) bitSize() int {
	switch k {
	case KindByte, KindUnsignedByte:
		return 8
	case KindShort, KindUnsignedShort:
		return 16
	case KindInt, KindUnsignedInt:
		return 32
	}
	return 64
}

// ParseKind resolves an XML Schema type name such as "xsd:int" or "int".
func ParseKind(typeName string) (Kind, bool) {
	_, name := splitTag(typeName)
	if name == "Struct" || name == "complex" {
		return KindComplex, true
	}
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Value is a single wire value. The zero Value is an empty string.
type Value struct {
	kind  Kind
	str   string
	i     int64
	u     uint64
	f     float64
	b     bool
	attrs *Fields
	elems *Fields
}

// String returns a plain string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Text returns a value of a string-like kind (string-derived, temporal,
// binary or URI) holding the given lexical form. It panics for other kinds.
func Text(kind Kind, lexical string) Value {
	if !kind.IsStringLike() {
		panic("soap: Text called with non-string kind " + kind.String())
	}
	return Value{kind: kind, str: lexical}
}

// Int64 returns a signed integer value of the given kind. The range is not checked.
func Int64(kind Kind, n int64) Value {
	if !kind.isSigned() {
		panic("soap: Int64 called with kind " + kind.String())
	}
	return Value{kind: kind, i: n}
}

// Uint64 returns an unsigned integer value of the given kind. The range is not checked.
func Uint64(kind Kind, n uint64) Value {
	if !kind.isUnsigned() {
		panic("soap: Uint64 called with kind " + kind.String())
	}
	return Value{kind: kind, u: n}
}

// Int returns an xsd:int value.
func Int(n int32) Value { return Value{kind: KindInt, i: int64(n)} }

// Long returns an xsd:long value.
func Long(n int64) Value { return Value{kind: KindLong, i: n} }

// Decimal returns an xsd:decimal value.
func Decimal(f float64) Value { return Value{kind: KindDecimal, f: f} }

// Bool returns an xsd:boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Base64 returns an xsd:base64Binary value encoding data.
func Base64(data []byte) Value {
	return Value{kind: KindBase64Binary, str: base64.StdEncoding.EncodeToString(data)}
}

// Hex returns an xsd:hexBinary value encoding data.
func Hex(data []byte) Value {
	return Value{kind: KindHexBinary, str: strings.ToUpper(hex.EncodeToString(data))}
}

// Complex returns a complex value. Nil mappings are treated as empty.
func Complex(attrs, elems *Fields) Value {
	if attrs == nil {
		attrs = &Fields{}
	}
	if elems == nil {
		elems = &Fields{}
	}
	return Value{kind: KindComplex, attrs: attrs, elems: elems}
}

// Zero returns the zero value of a kind, used as a declared shape.
func Zero(kind Kind) Value {
	if kind == KindComplex {
		return Complex(nil, nil)
	}
	return Value{kind: kind}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Str returns the lexical string of string-like kinds, or "" otherwise.
func (v Value) Str() string {
	if v.kind.IsStringLike() {
		return v.str
	}
	return ""
}

// Int64 returns the signed integer payload.
func (v Value) Int64() int64 { return v.i }

// Uint64 returns the unsigned integer payload.
func (v Value) Uint64() uint64 { return v.u }

// Float64 returns the decimal payload.
func (v Value) Float64() float64 { return v.f }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Attrs returns the attribute mapping of a complex value, or nil.
func (v Value) Attrs() *Fields { return v.attrs }

// Elems returns the child element mapping of a complex value, or nil.
func (v Value) Elems() *Fields { return v.elems }

// Interface returns the payload as a plain Go value: string, int64, uint64,
// float64, bool or map[string]any for complex values.
func (v Value) Interface() any {
	switch {
	case v.kind.IsStringLike():
		return v.str
	case v.kind.isSigned():
		return v.i
	case v.kind.isUnsigned():
		return v.u
	case v.kind == KindDecimal:
		return v.f
	case v.kind == KindBoolean:
		return v.b
	}
	m := make(map[string]any)
	v.attrs.Each(func(name string, fv Value) { m["@"+name] = fv.Interface() })
	v.elems.Each(func(name string, fv Value) { m[name] = fv.Interface() })
	return m
}

// TypeName returns the schema type name for v, e.g. "xsd:int".
func TypeName(v Value) string {
	if v.kind == KindComplex {
		return ComplexTypeName
	}
	return "xsd:" + v.kind.String()
}

// Lexical returns the canonical lexical form of v. Complex values have no
// lexical form and yield "".
func Lexical(v Value) string {
	switch {
	case v.kind.IsStringLike():
		return v.str
	case v.kind.isSigned():
		return strconv.FormatInt(v.i, 10)
	case v.kind.isUnsigned():
		return strconv.FormatUint(v.u, 10)
	case v.kind == KindDecimal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case v.kind == KindBoolean:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// ErrInvalidLexical is returned by ParseValue when a lexical form does not fit the kind.
var ErrInvalidLexical = errors.New("invalid lexical value")

// ParseValue converts a wire string into a value of the given kind.
func ParseValue(kind Kind, lexical string) (Value, error) {
	s := strings.TrimSpace(lexical)
	switch {
	case kind == KindLanguage:
		tag, err := language.Parse(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a language tag", ErrInvalidLexical, lexical)
		}
		return Value{kind: kind, str: tag.String()}, nil
	case kind == KindBase64Binary:
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return Value{}, fmt.Errorf("%w: %q is not base64", ErrInvalidLexical, lexical)
		}
		return Value{kind: kind, str: s}, nil
	case kind == KindHexBinary:
		if _, err := hex.DecodeString(s); err != nil {
			return Value{}, fmt.Errorf("%w: %q is not hex", ErrInvalidLexical, lexical)
		}
		return Value{kind: kind, str: s}, nil
	case kind == KindString || kind == KindNormalizedString:
		// whitespace is significant for these kinds
		return Value{kind: kind, str: lexical}, nil
	case kind.IsStringLike():
		return Value{kind: kind, str: s}, nil
	case kind.isSigned():
		n, err := strconv.ParseInt(s, 10, kind.bitSize())
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not %s", ErrInvalidLexical, lexical, TypeName(Zero(kind)))
		}
		return Value{kind: kind, i: n}, nil
	case kind.isUnsigned():
		n, err := strconv.ParseUint(s, 10, kind.bitSize())
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not %s", ErrInvalidLexical, lexical, TypeName(Zero(kind)))
		}
		return Value{kind: kind, u: n}, nil
	case kind == KindDecimal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not xsd:decimal", ErrInvalidLexical, lexical)
		}
		return Value{kind: kind, f: f}, nil
	case kind == KindBoolean:
		switch s {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not xsd:boolean", ErrInvalidLexical, lexical)
	}
	return Value{}, fmt.Errorf("%w: %s has no lexical form", ErrInvalidLexical, kind)
}

// Field is one entry of a Fields mapping.
type Field struct {
	Name  string
	Value Value
}

// Fields is an ordered name to Value mapping. Setting an existing name
// replaces its value in place. The zero value is ready to use.
type Fields struct {
	list []Field
}

// NewFields builds a mapping from fields in order.
func NewFields(fields ...Field) *Fields {
	f := &Fields{}
	for _, fl := range fields {
		f.Set(fl.Name, fl.Value)
	}
	return f
}

// Set inserts or replaces name.
func (f *Fields) Set(name string, v Value) {
	for i := range f.list {
		if f.list[i].Name == name {
			f.list[i].Value = v
			return
		}
	}
	f.list = append(f.list, Field{Name: name, Value: v})
}

// Get returns the value for name.
func (f *Fields) Get(name string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	for _, fl := range f.list {
		if fl.Name == name {
			return fl.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of entries.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.list)
}

// Each calls fn for every entry in order.
func (f *Fields) Each(fn func(name string, v Value)) {
	if f == nil {
		return
	}
	for _, fl := range f.list {
		fn(fl.Name, fl.Value)
	}
}

// List returns a copy of the entries in order.
func (f *Fields) List() []Field {
	if f == nil {
		return nil
	}
	out := make([]Field, len(f.list))
	copy(out, f.list)
	return out
}
