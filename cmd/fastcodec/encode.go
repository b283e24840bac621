package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fast "fastcodec"
)

func newEncodeCmd() *cobra.Command {
	var templatesPath string
	var hexOutput bool

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a JSON value tree into a FAST message",
		Long:  `Reads {"template": "...", "message": {...}} as JSON from a file argument or stdin, builds the named template's value tree, and writes the FAST wire encoding to stdout.`,
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

			var req struct {
				Template string                 `json:"template"`
				Message  map[string]interface{} `json:"message"`
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&req); err != nil {
				return fmt.Errorf("parsing JSON: %w", err)
			}

			tpl, ok := codec.Templates().ByName[req.Template]
			if !ok {
				return fmt.Errorf("unknown template %q", req.Template)
			}

			node, err := fast.JSONToTree(req.Template, req.Message, fast.KindOf(tpl))
			if err != nil {
				return fmt.Errorf("building message: %w", err)
			}

			wire, err := codec.Encode(fast.NewTreeSource(node))
			if err != nil {
				return fmt.Errorf("encoding message: %w", err)
			}

			out := cmd.OutOrStdout()
			if hexOutput {
				fmt.Fprintln(out, hex.EncodeToString(wire))
				return nil
			}
			_, err = out.Write(wire)
			return err
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "path to a FAST templates XML document")
	cmd.Flags().BoolVar(&hexOutput, "hex", false, "print the wire encoding as hex text instead of raw binary")
	return cmd
}
