package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-binding/framework/app"
	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/observation"
)

type evalResult struct {
	Source string         `json:"source" yaml:"source"`
	Value  any            `json:"value" yaml:"value"`
	Scope  map[string]any `json:"scope,omitempty" yaml:"scope,omitempty"`
}

func newEvalCommand(opts *options) *cobra.Command {
	var (
		scopeFile string
		asJSON    bool
		showScope bool
	)

	cmd := &cobra.Command{
		Use:   "eval <expression-file|->",
		Short: "Evaluate a serialized expression tree against a scope",
		Long: `Reads an expression tree (YAML or JSON, "-" for stdin), evaluates it
against the scope file and prints the unparsed source and the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			expr, err := ast.DecodeYAML(data)
			if err != nil {
				return err
			}

			values := map[string]any{}
			if scopeFile != "" {
				if values, err = app.LoadScope(scopeFile); err != nil {
					return err
				}
			}

			a, err := opts.boot()
			if err != nil {
				return err
			}
			vm := observation.NewObject(values)
			value, err := expr.Evaluate(a.Flags()|observation.MustEvaluate, observation.NewScope(vm), a.Container)
			if err != nil {
				return fmt.Errorf("eval %s: %w", ast.Unparse(expr), err)
			}

			res := evalResult{Source: ast.Unparse(expr), Value: value}
			if showScope {
				res.Scope = vm.Snapshot()
			}
			return write(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().StringVarP(&scopeFile, "scope", "s", "", "YAML file with the binding context")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	cmd.Flags().BoolVar(&showScope, "show-scope", false, "include the scope after evaluation")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func write(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
