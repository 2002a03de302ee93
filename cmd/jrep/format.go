package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"jrep/internal/errors"
	"jrep/internal/input"
	"jrep/internal/output"
)

// writeEncoded encodes v and prints it on its own line.
func writeEncoded(w io.Writer, v interface{}, format output.Format, indent string) error {
	data, err := output.Encode(v, format, indent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeSections prints each section on its own line, or writes them to
// path when set. The file name selects gzip or zstd compression.
func writeSections(w io.Writer, sections [][]byte, path string) error {
	var buf bytes.Buffer
	for _, s := range sections {
		buf.Write(s)
		buf.WriteByte('\n')
	}

	if path == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.InternalError, "cannot create output file", err)
	}
	compression, _ := input.Detect(path)
	if err := input.Compress(f, buf.Bytes(), compression); err != nil {
		_ = f.Close()
		return errors.Wrap(errors.InternalError, "cannot write output file", err)
	}
	return f.Close()
}
