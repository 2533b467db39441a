package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zoobzio/siftz"
	"github.com/zoobzio/siftz/internal/config"
	"gopkg.in/yaml.v3"
)

func writeValue(w io.Writer, v siftz.Value, format string) error {
	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		raw, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		out.WriteByte('\n')
		_, err = out.WriteTo(w)
		return err
	}
}
