package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMalformed is returned when a response body is not a single JSON value.
var ErrMalformed = errors.New("malformed response body")

// maxDepth bounds nesting so a hostile body cannot exhaust the stack.
const maxDepth = 64

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindOther covers numbers, booleans and null.
	KindOther Kind = iota
	// KindString is a JSON string.
	KindString
	// KindList is a JSON array.
	KindList
	// KindMapping is a JSON object.
	KindMapping
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return "other"
	}
}

// Field is one key/value pair of a mapping.
type Field struct {
	Key   string
	Value Value
}

// Value is a decoded JSON value.
// Only the fields matching Kind are populated.
type Value struct {
	// Kind selects the variant.
	Kind Kind

	// Str holds the text of a KindString value.
	Str string

	// Items holds the elements of a KindList value.
	Items []Value

	// Fields holds the members of a KindMapping value in document order.
	Fields []Field

	// Literal holds the JSON text of a KindOther value ("1", "true", "null").
	Literal string
}

// Get returns the member of a mapping stored under key.
// Duplicate keys resolve to the last occurrence, as encoding/json does.
func (v Value) Get(key string) (Value, bool) {
	var (
		found Value
		ok    bool
	)
	for _, f := range v.Fields {
		if f.Key == key {
			found, ok = f.Value, true
		}
	}
	return found, ok
}

// Keys returns the mapping keys in document order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// IsNull reports whether v is the JSON null literal.
func (v Value) IsNull() bool {
	return v.Kind == KindOther && v.Literal == "null"
}

// Decode parses body into a Value.
// Object member order is preserved. Any syntax error, trailing data or empty
// body yields an error wrapping ErrMalformed.
func Decode(body []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data after top-level value", ErrMalformed)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("nesting deeper than %d levels", maxDepth)
	}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return decodeList(dec, depth)
		case '{':
			return decodeMapping(dec, depth)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindOther, Literal: t.String()}, nil
	case bool:
		return Value{Kind: KindOther, Literal: strconv.FormatBool(t)}, nil
	case nil:
		return Value{Kind: KindOther, Literal: "null"}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeList(dec *json.Decoder, depth int) (Value, error) {
	items := make([]Value, 0)
	for dec.More() {
		item, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindList, Items: items}, nil
}

func decodeMapping(dec *json.Decoder, depth int) (Value, error) {
	fields := make([]Field, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T, not string", tok)
		}
		val, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: val})
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindMapping, Fields: fields}, nil
}
