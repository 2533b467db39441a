package siftz

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MarshalJSON renders v as canonical JSON: maps keep insertion order, pairs
// become two-element arrays, and markup characters are not escaped. Bytes
// must be valid UTF-8; anything else fails with ErrTypeConversion.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindText:
		return writeJSONString(buf, v.text)
	case KindBytes:
		if !utf8.Valid(v.raw) {
			return conversionError("bytes are not valid UTF-8 and have no JSON form")
		}
		return writeJSONString(buf, string(v.raw))
	case KindNumber:
		buf.WriteString(v.text)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.flag))
	case KindNull:
		buf.WriteString("null")
	case KindList, KindPair:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		var err error
		i := 0
		v.m.Range(func(key string, item Value) bool {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			if err = writeJSONString(buf, key); err != nil {
				return false
			}
			buf.WriteByte(':')
			err = writeJSON(buf, item)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return conversionError("%s value has no JSON form", v.kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every document with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// MarshalYAML renders v as an ordered YAML node tree. Bytes that are not
// valid UTF-8 are emitted as !!binary.
func (v Value) MarshalYAML() (interface{}, error) {
	return yamlNode(v)
}

func yamlNode(v Value) (*yaml.Node, error) {
	switch v.kind {
	case KindText:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.text}, nil
	case KindBytes:
		if utf8.Valid(v.raw) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(v.raw)}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(v.raw)}, nil
	case KindNumber:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.text}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.flag)}, nil
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindList, KindPair:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			child, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		v.m.Range(func(key string, item Value) bool {
			var child *yaml.Node
			child, err = yamlNode(item)
			if err != nil {
				return false
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				child,
			)
			return true
		})
		if err != nil {
			return nil, err
		}
		return node, nil
	}
	return nil, conversionError("%s value has no YAML form", v.kind)
}

// FromJSON converts a decoded JSON document (as produced by encoding/json or
// a JSON-path engine) into a Value. Object keys are sorted because decoded
// Go maps carry no order.
func FromJSON(data any) Value {
	switch x := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return Text(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case json.Number:
		return Value{kind: KindNumber, text: x.String()}
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromJSON(item)
		}
		return Value{kind: KindList, items: items}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromJSON(x[k]))
		}
		return MapValue(m)
	case *jsonObject:
		return x.toValue()
	case Value:
		return x
	}
	return Text(fmt.Sprint(data))
}
