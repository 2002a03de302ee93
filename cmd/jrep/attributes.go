package main

import (
	"io"

	"github.com/spf13/cobra"

	"jrep/internal/diag"
	"jrep/internal/output"
)

var attributesFormat string

var attributesCmd = &cobra.Command{
	Use:   "attributes <reference>",
	Short: "List the attributes defined by a reference document",
	Long: `Load a reference document and print its attribute table, sorted by ID.

Examples:
  jrep attributes reference.json
  jrep attributes reference.yaml.gz --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		format, err := a.outputFormat(cmd)
		if err != nil {
			return err
		}
		return listAttributes(cmd.OutOrStdout(), a, args[0], format)
	},
}

func init() {
	attributesCmd.Flags().StringVar(&attributesFormat, "format", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(attributesCmd)
}

// AttributesResponseCLI is the output of the attributes command
type AttributesResponseCLI struct {
	Count      int            `json:"count"`
	Attributes []AttributeCLI `json:"attributes"`
}

// AttributeCLI is one row of the attribute table
type AttributeCLI struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	DataType        string           `json:"dataType"`
	PicklistOptions []PicklistOptCLI `json:"picklistOptions,omitempty"`
}

// PicklistOptCLI is one picklist option
type PicklistOptCLI struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func listAttributes(w io.Writer, a *app, referenceArg string, format output.Format) error {
	table, err := a.loadReference(referenceArg, diag.NewSlogSink(a.logger))
	if err != nil {
		return err
	}

	resp := AttributesResponseCLI{Attributes: []AttributeCLI{}}
	for _, attr := range table.Attributes() {
		row := AttributeCLI{ID: attr.ID, Name: attr.Name, DataType: attr.DataType.String()}
		for _, opt := range attr.PicklistOptions {
			row.PicklistOptions = append(row.PicklistOptions, PicklistOptCLI{ID: opt.ID, Name: opt.Name})
		}
		resp.Attributes = append(resp.Attributes, row)
	}
	resp.Count = len(resp.Attributes)

	return writeEncoded(w, resp, format, a.cfg.Output.Indent)
}
