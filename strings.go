package siftz

import "context"

// DefaultMinLength is the shortest printable run Strings keeps by default,
// and the run length binary mode uses before matching.
const DefaultMinLength = 4

// ExtractStringsName is the processor name of Strings.
const ExtractStringsName Name = "extract_strings"

// Strings extracts maximal runs of printable ASCII (0x20 to 0x7E) that are at
// least minLength bytes long. It works on bytes unconditionally, so it is the
// way into binary input. A minLength below 1 is treated as 1.
//
// Output: a List of Bytes in source order, duplicates kept.
func Strings(minLength int) Processor[Value] {
	return Apply(ExtractStringsName, func(_ context.Context, v Value) (Value, error) {
		srcs, err := Sources(v)
		if err != nil {
			return v, err
		}
		var out []Value
		for _, src := range srcs {
			for _, run := range printableRuns(src, minLength) {
				out = append(out, Bytes(run))
			}
		}
		return List(out...), nil
	})
}

// printableRuns scans bytes directly; a UTF-8 aware regexp would count
// decoded high bytes as printable.
func printableRuns(src []byte, minLength int) [][]byte {
	if minLength < 1 {
		minLength = 1
	}
	var runs [][]byte
	start := -1
	for i, b := range src {
		if b >= 0x20 && b <= 0x7e {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLength {
			runs = append(runs, src[start:i])
		}
		start = -1
	}
	if start >= 0 && len(src)-start >= minLength {
		runs = append(runs, src[start:])
	}
	return runs
}
