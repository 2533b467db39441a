package siftz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// JPathName is the processor name of JPath.
const JPathName Name = "jpath_selector"

// JPath parses the current value as JSON and returns the values selected by
// a JSONPath expression, in document order. Objects keep their key order.
// Expressions may be
// written relative to the document ("[*].name", "name.first"); they are
// rooted at $ before compiling.
//
// Malformed JSON fails with ErrParse, a malformed expression with
// ErrQuerySyntax. No match is an empty list.
func JPath(query string) Processor[Value] {
	return Apply(JPathName, func(_ context.Context, v Value) (Value, error) {
		expr, err := compileJPath(query)
		if err != nil {
			return v, err
		}
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		doc, err := parseOrdered(text)
		if err != nil {
			return v, err
		}
		found := expr.Get(doc)
		out := make([]Value, len(found))
		for i, item := range found {
			out[i] = FromJSON(item)
		}
		return List(out...), nil
	})
}

func compileJPath(query string) (jp.Expr, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: jsonpath: empty expression", ErrQuerySyntax)
	}
	switch q[0] {
	case '$', '@':
	case '[', '.':
		q = "$" + q
	default:
		q = "$." + q
	}
	expr, err := jp.ParseString(q)
	if err != nil {
		return nil, fmt.Errorf("%w: jsonpath %q: %v", ErrQuerySyntax, query, err)
	}
	return expr, nil
}

// jsonObject is a JSON object that remembers key order, so jp walks it in
// document order.
type jsonObject struct {
	keys   []string
	values map[string]any
}

func newJSONObject() *jsonObject {
	return &jsonObject{values: map[string]any{}}
}

func (o *jsonObject) ValueForKey(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// SetValueForKey keeps the first position of a repeated key and the last value.
func (o *jsonObject) SetValueForKey(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *jsonObject) RemoveValueForKey(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *jsonObject) Keys() []string {
	return o.keys
}

// toValue converts o into a Map in key order.
func (o *jsonObject) toValue() Value {
	m := NewMap()
	for _, k := range o.keys {
		m.Set(k, FromJSON(o.values[k]))
	}
	return MapValue(m)
}

// frame is an open array or object while building the document.
type frame struct {
	obj *jsonObject
	arr []any
	key string
}

// orderedBuilder is an oj.TokenHandler that builds a document of []any and
// *jsonObject nodes.
type orderedBuilder struct {
	stack []*frame
	root  any
	done  bool
}

func (b *orderedBuilder) add(v any) {
	if len(b.stack) == 0 {
		b.root = v
		b.done = true
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.obj != nil {
		top.obj.SetValueForKey(top.key, v)
		return
	}
	top.arr = append(top.arr, v)
}

func (b *orderedBuilder) Null() { b.add(nil) }
func (b *orderedBuilder) Bool(v bool) { b.add(v) }
func (b *orderedBuilder) Int(v int64) { b.add(v) }
func (b *orderedBuilder) Float(v float64) { b.add(v) }
func (b *orderedBuilder) Number(v string) { b.add(json.Number(v)) }
func (b *orderedBuilder) String(v string) { b.add(v) }
func (b *orderedBuilder) Key(k string) { b.stack[len(b.stack)-1].key = k }
func (b *orderedBuilder) ObjectStart() { b.stack = append(b.stack, &frame{obj: newJSONObject()}) }
func (b *orderedBuilder) ArrayStart() { b.stack = append(b.stack, &frame{arr: []any{}}) }
func (b *orderedBuilder) ObjectEnd() { b.add(b.pop().obj) }
func (b *orderedBuilder) ArrayEnd() { b.add(b.pop().arr) }

func (b *orderedBuilder) pop() *frame {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return top
}

// parseOrdered parses a single JSON document keeping object key order.
func parseOrdered(text string) (any, error) {
	var (
		b orderedBuilder
		t oj.Tokenizer
	)
	t.OnlyOne = true
	if err := t.Parse([]byte(text), &b); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrParse, err)
	}
	if !b.done || len(b.stack) != 0 {
		return nil, fmt.Errorf("%w: json: incomplete document", ErrParse)
	}
	return b.root, nil
}
