package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/portvapt/internal/model"
)

// JSONWriter outputs the results as a JSON array for tool integration.
// Decoding the output yields results equal to the input.
type JSONWriter struct {
	baseWriter
	indent string
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is indented with two spaces unless WithIndent says otherwise.
func NewJSONWriter(output io.Writer, opts ...Option) *JSONWriter {
	o := newOptions(opts)
	return &JSONWriter{
		baseWriter: newBaseWriter(output),
		indent:     o.indent,
	}
}

// Write outputs the results. A nil slice is written as an empty array.
func (w *JSONWriter) Write(results []model.VaptResult) (int, error) {
	if results == nil {
		results = []model.VaptResult{}
	}

	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(results, "", w.indent)
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}
