package output

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"jrep/internal/errors"
)

// Format selects an encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Newf(errors.UnsupportedFormat, "unsupported output format %q", s)
	}
}

// Encode renders v in the given format with the given JSON indent.
func Encode(v interface{}, format Format, indent string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return DeterministicEncodeIndented(v, indent)
	case FormatYAML:
		return EncodeYAML(v)
	default:
		return nil, errors.Newf(errors.UnsupportedFormat, "unsupported output format %q", format)
	}
}

// DeterministicEncode produces compact, byte-identical JSON output.
func DeterministicEncode(v interface{}) ([]byte, error) {
	return DeterministicEncodeIndented(v, "")
}

// DeterministicEncodeIndented produces indented byte-identical JSON output.
// An empty indent yields compact output.
func DeterministicEncodeIndented(v interface{}, indent string) ([]byte, error) {
	normalized, err := normalize(v, jsonNumber)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(normalized); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to encode JSON", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeYAML renders v as YAML with sorted keys.
func EncodeYAML(v interface{}) ([]byte, error) {
	normalized, err := normalize(v, yamlNumber)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(normalized); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to encode YAML", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to encode YAML", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type numberFunc func(json.Number) interface{}

// normalize converts v into plain maps, slices and scalars through a JSON
// round trip. Floats computed in-process are rounded first; json.Number
// values decoded from input documents keep their text.
func normalize(v interface{}, num numberFunc) (interface{}, error) {
	data, err := json.Marshal(roundFloats(v))
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to marshal value", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to normalize value", err)
	}
	return walk(tree, num), nil
}

// roundFloats copies generic containers, replacing float64 and float32
// leaves with their rounded form. Struct fields are left alone.
func roundFloats(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[k] = roundFloats(elem)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = roundFloats(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = roundFloats(elem)
		}
		return out
	case float64:
		return json.Number(FormatFloat(val))
	case float32:
		return json.Number(FormatFloat(float64(val)))
	default:
		return v
	}
}

func walk(v interface{}, num numberFunc) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, elem := range val {
			val[k] = walk(elem, num)
		}
		return val
	case []interface{}:
		for i, elem := range val {
			val[i] = walk(elem, num)
		}
		return val
	case json.Number:
		return num(val)
	default:
		return v
	}
}

func isInteger(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// jsonNumber keeps the number text verbatim.
func jsonNumber(n json.Number) interface{} {
	return n
}

// yamlNumber emits the number text as a plain YAML scalar.
func yamlNumber(n json.Number) interface{} {
	tag := "!!float"
	if isInteger(n) {
		tag = "!!int"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(n)}
}
