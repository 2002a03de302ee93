// Package input turns command-line document arguments into JSON bytes.
//
// An argument is either inline JSON or a path. Files may be gzip or zstd
// compressed and may hold YAML or TOML instead of JSON; they are converted
// to canonical JSON before any parsing happens.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"jrep/internal/errors"
)

// Codec identifies a document syntax.
type Codec string

const (
	CodecJSON Codec = "json"
	CodecYAML Codec = "yaml"
	CodecTOML Codec = "toml"
)

// Compression identifies a file compression.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// maxDocumentSize bounds decompressed input.
const maxDocumentSize = 512 << 20

// IsInline reports whether arg is a JSON document rather than a path.
func IsInline(arg string) bool {
	trimmed := strings.TrimSpace(arg)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// Content returns the JSON bytes for arg. Inline JSON is returned as is; an
// existing path is read, decompressed and converted; anything else is
// returned verbatim and left for the JSON parser to reject.
func Content(arg string) ([]byte, error) {
	if IsInline(arg) {
		return []byte(arg), nil
	}

	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return []byte(arg), nil
	}
	return ReadFile(arg)
}

// ReadFile reads path, detecting compression and codec from its name.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.InputUnreadable, fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	compression, codec := Detect(path)
	br := bufio.NewReader(f)
	if compression == CompressionNone {
		head, _ := br.Peek(4)
		compression = Sniff(head)
	}
	return Read(br, compression, codec)
}

// Detect derives compression and codec from a file name such as
// "reference.yaml.gz".
func Detect(path string) (Compression, Codec) {
	name := strings.ToLower(filepath.Base(path))

	compression := CompressionNone
	switch ext := filepath.Ext(name); ext {
	case ".gz", ".gzip":
		compression = CompressionGzip
		name = strings.TrimSuffix(name, ext)
	case ".zst", ".zstd":
		compression = CompressionZstd
		name = strings.TrimSuffix(name, ext)
	}

	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return compression, CodecYAML
	case ".toml":
		return compression, CodecTOML
	default:
		return compression, CodecJSON
	}
}

// Read decompresses r and converts it to JSON.
func Read(r io.Reader, compression Compression, codec Codec) ([]byte, error) {
	raw, err := decompress(r, compression)
	if err != nil {
		return nil, err
	}
	return ToJSON(raw, codec)
}

func decompress(r io.Reader, compression Compression) ([]byte, error) {
	var src io.Reader
	switch compression {
	case CompressionNone:
		src = r
	case CompressionGzip:
		zr, err := kgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(errors.InputUnreadable, "invalid gzip stream", err)
		}
		defer zr.Close()
		src = zr
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(errors.InputUnreadable, "invalid zstd stream", err)
		}
		defer zr.Close()
		src = zr
	default:
		return nil, errors.Newf(errors.UnsupportedFormat, "unsupported compression %q", compression)
	}

	data, err := io.ReadAll(io.LimitReader(src, maxDocumentSize+1))
	if err != nil {
		return nil, errors.Wrap(errors.InputUnreadable, "failed to read input", err)
	}
	if len(data) > maxDocumentSize {
		return nil, errors.Newf(errors.InputUnreadable, "input exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

// ToJSON converts a YAML or TOML document to JSON. JSON passes through
// untouched so that parse errors point at the original text.
func ToJSON(data []byte, codec Codec) ([]byte, error) {
	var doc interface{}
	switch codec {
	case CodecJSON, "":
		return data, nil
	case CodecYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(errors.ParseError, "invalid YAML document", err)
		}
	case CodecTOML:
		var m map[string]interface{}
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, errors.Wrap(errors.ParseError, "invalid TOML document", err)
		}
		doc = m
	default:
		return nil, errors.Newf(errors.UnsupportedFormat, "unsupported document format %q", codec)
	}

	doc, err := jsonCompatible(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ParseError, fmt.Sprintf("invalid %s document", codec), err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ParseError, fmt.Sprintf("cannot represent %s document as JSON", codec), err)
	}
	return out, nil
}

// jsonCompatible rewrites YAML's map[interface{}]interface{} nodes and
// rejects values JSON cannot hold.
func jsonCompatible(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, elem := range val {
			conv, err := jsonCompatible(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			val[k] = conv
		}
		return val, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			conv, err := jsonCompatible(elem)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", k, err)
			}
			out[fmt.Sprint(k)] = conv
		}
		return out, nil
	case []interface{}:
		for i, elem := range val {
			conv, err := jsonCompatible(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			val[i] = conv
		}
		return val, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			conv, err := jsonCompatible(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	default:
		return v, nil
	}
}

// Compress writes data with the given compression.
func Compress(w io.Writer, data []byte, compression Compression) error {
	switch compression {
	case CompressionNone:
		_, err := w.Write(data)
		return err
	case CompressionGzip:
		zw := kgzip.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		return zw.Close()
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	default:
		return errors.Newf(errors.UnsupportedFormat, "unsupported compression %q", compression)
	}
}

// Sniff reports the compression of data from its magic bytes.
func Sniff(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		return CompressionGzip
	case bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return CompressionZstd
	default:
		return CompressionNone
	}
}
