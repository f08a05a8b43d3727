// Package report renders classification results.
//
// Three formats are supported:
//   - text: colored terminal output (SimpleWriter)
//   - json: an array of results that decodes back losslessly (JSONWriter)
//   - markdown: one table row per port (MarkdownWriter)
//
// Writers implement the Writer interface, so the CLI can pick one with
// NewWriter and combine a terminal writer and a file writer through
// MultiWriter.
package report
