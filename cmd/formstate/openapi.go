package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate"
	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/spec"
)

type fromOpenAPIOptions struct {
	operation string
	name      string
	submit    string
	start     string
	format    string
	output    string
}

func newFromOpenAPICommand(a *app) *cobra.Command {
	opts := fromOpenAPIOptions{}
	cmd := &cobra.Command{
		Use:   "from-openapi <document>",
		Short: "Derive a form spec from an OpenAPI operation",
		Long: `Reads an OpenAPI 3 document from a file or URL and maps the request
body of one operation onto a self-contained form spec with controls.
Without --operation the available operation ids are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fromOpenAPI(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.operation, "operation", "o", "", "operation id to derive")
	cmd.Flags().StringVar(&opts.name, "name", "", "form name (defaults to the operation id)")
	cmd.Flags().StringVar(&opts.submit, "submit", "", "submit control name")
	cmd.Flags().StringVar(&opts.start, "start-validation", "", "form-wide trigger mode (input or change)")
	cmd.Flags().StringVar(&opts.format, "format", "yaml", "output format (yaml or json)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	return cmd
}

func (a *app) fromOpenAPI(cmd *cobra.Command, arg string, opts fromOpenAPIOptions) error {
	ctx := cmd.Context()
	src := pkgopenapi.SourceFromArg(arg)
	loaderOpts := []pkgopenapi.LoaderOption{pkgopenapi.WithHTTPClient(a.httpClient())}

	if strings.TrimSpace(opts.operation) == "" {
		doc, err := formstate.NewLoader(loaderOpts...).Load(ctx, src)
		if err != nil {
			return err
		}
		ops, err := formstate.NewParser().Operations(ctx, doc)
		if err != nil {
			return err
		}
		for _, id := range pkgopenapi.OperationIDs(ops) {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	var derive []pkgopenapi.DeriveOption
	if opts.name != "" {
		derive = append(derive, pkgopenapi.WithFormName(opts.name))
	}
	if opts.submit != "" {
		derive = append(derive, pkgopenapi.WithSubmitName(opts.submit))
	}
	if opts.start != "" {
		derive = append(derive, pkgopenapi.WithStartValidation(opts.start))
	}
	form, err := formstate.FromOpenAPI(ctx, src, opts.operation, loaderOpts, derive...)
	if err != nil {
		return err
	}
	for _, warning := range form.Warnings {
		a.logger.Warn("property skipped", zap.String("operation", opts.operation), zap.String("detail", warning))
	}
	if err := form.Spec.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return encodeSpec(out, opts.format, form.Spec)
}

func encodeSpec(w io.Writer, format string, s spec.FormSpec) error {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		return writeJSON(w, s)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
