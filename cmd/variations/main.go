// Command variations expands an indicator definition file into its list of
// variation identifiers.
//
// Usage:
//
//	variations generate -f rsi.yaml
//	variations generate -f rsi.json --json
//	variations relations
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/liamcoop/variations/form"
	"github.com/liamcoop/variations/internal/logger"
	"github.com/liamcoop/variations/variations"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "variations",
		Short:        "Generate indicator variation identifiers",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logger.LevelDebug)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log generation details to stderr")

	root.AddCommand(newGenerateCmd(), newRelationsCmd())
	return root
}

type generateOptions struct {
	file      string
	asJSON    bool
	maxInputs int
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate -f <definition>",
		Short: "Expand a YAML or JSON definition into identifiers",
		Long: `Reads an indicator definition, builds every input domain, enumerates the
combinations, applies the optional condition and prints the comma separated
identifier list. Use "-f -" to read JSON from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "definition file (.yaml, .yml or .json; - for stdin)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().IntVar(&opts.maxInputs, "max-inputs", form.DefaultMaxInputs, "maximum number of inputs accepted")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	def, err := readDefinition(cmd.InOrStdin(), opts.file)
	if err != nil {
		return err
	}

	req, err := def.ToRequest(opts.maxInputs)
	if err != nil {
		return err
	}

	logger.Setup(cmd.ErrOrStderr())
	engine, err := variations.NewEngineWithLogger(logger.Logger)
	if err != nil {
		return err
	}

	res, err := engine.Generate(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	_, err = fmt.Fprintln(out, res.Output)
	return err
}

func readDefinition(stdin io.Reader, path string) (*form.Definition, error) {
	if path == "-" {
		return form.Decode(stdin, form.FormatJSON)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definition: %w", err)
	}
	defer f.Close()

	return form.Decode(f, form.FormatFromPath(path))
}

func newRelationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relations",
		Short: "List the relations a condition accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, r := range variations.Relations() {
				if _, err := fmt.Fprintln(out, r.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
