package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags a decoded JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// Value is a decoded JSON document. Objects keep their member order, so
// traversal order over a Value is the order the provider serialized the
// document in.
type Value struct {
	Kind Kind
	Bool bool
	Num  string
	Str  string
	List []Value
	Map  []Member
}

// Member is a single object member.
type Member struct {
	Key   string
	Value Value
}

// Decode parses data into a Value. Unlike unmarshalling into map[string]any,
// object member order survives.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return valueFromToken(dec, tok)
}

func valueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := Value{Kind: KindMap}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.Map = append(v.Map, Member{Key: key, Value: member})
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return Value{}, err
			}
			return v, nil
		case '[':
			v := Value{Kind: KindList}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.List = append(v.List, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return Value{}, err
			}
			return v, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Num: t.String()}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// Field returns the value of a top-level object member.
func Field(v Value, key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	for _, m := range v.Map {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// ScalarString renders a scalar value the way an id or status field would be
// read: strings as-is, numbers in their wire form, everything else empty.
func ScalarString(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	default:
		return ""
	}
}

// LookupString returns the first non-empty scalar among the named top-level
// members.
func LookupString(v Value, keys ...string) string {
	for _, key := range keys {
		member, ok := Field(v, key)
		if !ok {
			continue
		}
		if s := ScalarString(member); s != "" {
			return s
		}
	}
	return ""
}

// walkStrings visits every string leaf depth-first, in document order. The
// visitor returns true to stop the walk.
func walkStrings(v Value, visit func(string) bool) bool {
	switch v.Kind {
	case KindString:
		return visit(v.Str)
	case KindList:
		for _, elem := range v.List {
			if walkStrings(elem, visit) {
				return true
			}
		}
	case KindMap:
		for _, m := range v.Map {
			if walkStrings(m.Value, visit) {
				return true
			}
		}
	}
	return false
}
