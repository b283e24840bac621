package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	fast "fastcodec"
)

func newDecodeCmd() *cobra.Command {
	var templatesPath string
	var hexInput bool

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode one FAST message and print it as JSON",
		Long:  "Reads a FAST message (binary by default, or hex text with --hex) from a file argument or stdin, decodes it against --templates, and writes the value tree as JSON to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if templatesPath == "" {
				return fmt.Errorf("--templates is required")
			}
			xmlDoc, err := os.ReadFile(templatesPath)
			if err != nil {
				return fmt.Errorf("reading templates: %w", err)
			}
			codec, err := fast.NewFromXML(xmlDoc)
			if err != nil {
				return fmt.Errorf("compiling templates: %w", err)
			}

			raw, err := readInput(args)
			if err != nil {
				return err
			}
			if hexInput {
				raw, err = hex.DecodeString(strings.TrimSpace(string(raw)))
				if err != nil {
					return fmt.Errorf("decoding hex input: %w", err)
				}
			}

			sink := fast.NewTreeSink()
			consumed, err := codec.Decode(raw, sink)
			if err != nil {
				return fmt.Errorf("decoding message: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"template": sink.Root.TemplateName,
				"consumed": consumed,
				"message":  fast.TreeToJSON(sink.Root),
			})
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "path to a FAST templates XML document")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "treat the input as hex text instead of raw binary")
	return cmd
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}
