package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how CLI commands render server responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatText hands rendering to the command itself, for
	// human-oriented output like an answer with its citation list.
	OutputFormatText OutputFormat = "text"
)

// outputFormat is set once by the root command's --output flag.
var outputFormat = OutputFormatYAML

// SetOutputFormat sets the process-wide output format. Unknown values
// keep YAML.
func SetOutputFormat(format string) {
	switch f := OutputFormat(format); f {
	case OutputFormatYAML, OutputFormatJSON, OutputFormatText:
		outputFormat = f
	default:
		outputFormat = OutputFormatYAML
	}
}

// IsStructuredOutput reports whether responses should be emitted as a
// machine-readable document. Commands with their own text rendering
// check this before falling back to Output.
func IsStructuredOutput() bool {
	return outputFormat != OutputFormatText
}

// Output writes data to stdout in the configured format. Commands
// without a text rendering of their own may call this in text mode
// too; it falls back to YAML.
func Output(data any) error {
	return OutputTo(os.Stdout, outputFormat, data)
}

// OutputTo writes data to w in the given format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML, OutputFormatText:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
