package siftz

import (
	"bytes"
	"slices"
	"unicode/utf8"
)

// AsBytes views v as a byte sequence. Bytes are returned as a copy, Text as
// its UTF-8 encoding, and every structured or scalar value as canonical JSON.
func AsBytes(v Value) ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return bytes.Clone(v.raw), nil
	case KindText:
		return []byte(v.text), nil
	case KindInvalid:
		return nil, conversionError("value is unset")
	}
	return v.MarshalJSON()
}

// AsText views v as a string. Bytes must be valid UTF-8; structured and
// scalar values render as canonical JSON.
func AsText(v Value) (string, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindBytes:
		if !utf8.Valid(v.raw) {
			return "", conversionError("bytes are not valid UTF-8")
		}
		return string(v.raw), nil
	case KindInvalid:
		return "", conversionError("value is unset")
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// AsList views v as a sequence. A Pair yields its two members.
func AsList(v Value) ([]Value, error) {
	switch v.kind {
	case KindList, KindPair:
		return slices.Clone(v.items), nil
	}
	return nil, conversionError("%s value is not a sequence", v.kind)
}

// AsMap views v as a mapping.
func AsMap(v Value) (*Map, error) {
	if v.kind != KindMap {
		return nil, conversionError("%s value is not a mapping", v.kind)
	}
	return v.m, nil
}

// Sources returns the byte buffers a pattern extractor scans. A List is
// scanned element by element so that running an extractor on its own output
// gives the same output back; every other kind is a single buffer.
func Sources(v Value) ([][]byte, error) {
	if v.kind != KindList {
		b, err := AsBytes(v)
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	}
	out := make([][]byte, 0, len(v.items))
	for _, item := range v.items {
		b, err := AsBytes(item)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
