package siftz

import (
	"bytes"
	"slices"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds. The zero Kind is KindInvalid, which is what an unset Value holds.
const (
	KindInvalid Kind = iota
	KindBytes
	KindText
	KindList
	KindMap
	KindPair
	KindNull
	KindBool
	KindNumber
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBytes:   "bytes",
	KindText:    "text",
	KindList:    "list",
	KindMap:     "map",
	KindPair:    "pair",
	KindNull:    "null",
	KindBool:    "bool",
	KindNumber:  "number",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the state flowing through a Pipeline. It is a tagged variant over
// raw bytes, text, an ordered list, an insertion-ordered map, a two-member
// pair (the dual state used by comparison operations), and the JSON scalars
// null, bool and number that JSON-path results carry.
//
// Values are treated as immutable: constructors copy their input slices and
// every extractor builds a new Value rather than editing the current one.
type Value struct {
	kind  Kind
	raw   []byte
	text  string
	items []Value
	m     *Map
	flag  bool
}

// Bytes returns a Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(nonNil(b))}
}

// Text returns a Value holding s.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// List returns a Value holding the given items in order.
func List(items ...Value) Value {
	return Value{kind: KindList, items: slices.Clone(nonNilItems(items))}
}

// TextList is a shorthand for a List of Text values.
func TextList(items ...string) Value {
	out := make([]Value, len(items))
	for i, s := range items {
		out[i] = Text(s)
	}
	return Value{kind: KindList, items: out}
}

// MapValue returns a Value holding m. A nil m yields an empty map.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Pair returns the dual state (first, second).
func Pair(first, second Value) Value {
	return Value{kind: KindPair, items: []Value{first, second}}
}

// Null returns the JSON null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Int returns a numeric value.
func Int(n int64) Value {
	return Value{kind: KindNumber, text: strconv.FormatInt(n, 10)}
}

// Float returns a numeric value.
func Float(f float64) Value {
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// Len returns the number of items of a List or Map, the byte length of
// Bytes and Text, 2 for a Pair and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindBytes:
		return len(v.raw)
	case KindText:
		return len(v.text)
	case KindList, KindPair:
		return len(v.items)
	case KindMap:
		return v.m.Len()
	}
	return 0
}

// Index returns the i-th item of a List or Pair.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList && v.kind != KindPair {
		return Value{}, false
	}
	if i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Equal reports whether v and o hold the same variant and contents.
// Maps compare in key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindText, KindNumber:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	case KindList, KindPair:
		return slices.EqualFunc(v.items, o.items, Value.Equal)
	case KindMap:
		return v.m.Equal(o.m)
	}
	return true
}

// String renders v for humans: text as is, everything else as canonical JSON.
func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return "<invalid>"
	case KindText:
		return v.text
	case KindBytes:
		return strconv.Quote(string(v.raw))
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ": " + err.Error() + ">"
	}
	return string(out)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func nonNilItems(items []Value) []Value {
	if items == nil {
		return []Value{}
	}
	return items
}
