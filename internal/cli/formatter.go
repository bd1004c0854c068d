package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/organic-programming/run-calc/internal/schema"

	"golang.org/x/term"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

// Format determines how calcd displays a response.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be text, json or yaml", value)
	}
}

// stdoutIsTerminal reports whether JSON output is read by a person.
var stdoutIsTerminal = defaultStdoutIsTerminal

func defaultStdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// FormatCalculate renders a Calculate response. Text output is exactly
// what run-calc prints.
func FormatCalculate(format Format, resp schema.CalculateResponse) string {
	switch format {
	case FormatJSON:
		return marshalProtoJSONForOutput(resp.Encode()) + "\n"
	case FormatYAML:
		return marshalYAMLForOutput(resp.Encode())
	default:
		return resp.Output
	}
}

// FormatOperations renders the operation registry.
func FormatOperations(format Format, ops []schema.OperationInfo) string {
	switch format {
	case FormatJSON:
		return marshalProtoJSONForOutput(schema.EncodeListOperationsResponse(ops)) + "\n"
	case FormatYAML:
		return marshalYAMLForOutput(schema.EncodeListOperationsResponse(ops))
	}

	if len(ops) == 0 {
		return "No operations.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOPERATION\tARITY")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%s\n", op.Name, defaultDash(op.Canonical), arityLabel(op.Arity))
	}
	_ = w.Flush()
	return b.String()
}

func arityLabel(arity string) string {
	label := strings.ToLower(strings.TrimPrefix(arity, "ARITY_"))
	if label == "" || label == "unspecified" {
		return "-"
	}
	return label
}

func defaultDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

var outputJSON = protojson.MarshalOptions{EmitUnpopulated: true}

func marshalProtoJSONForOutput(msg proto.Message) string {
	opts := outputJSON
	if stdoutIsTerminal() {
		opts.Multiline = true
		opts.Indent = "  "
	}
	out, err := opts.Marshal(msg)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func marshalYAMLForOutput(msg proto.Message) string {
	raw, err := outputJSON.Marshal(msg)
	if err != nil {
		return "{}\n"
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "{}\n"
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "{}\n"
	}
	return string(out)
}
