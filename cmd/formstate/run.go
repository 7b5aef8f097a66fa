package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/transport"
	"github.com/goliatone/go-formstate/pkg/tui"
)

type runOptions struct {
	endpoint string
	encoding string
	rounds   int
	theme    string
	variant  string
}

func newRunCommand(a *app) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run <form>",
		Short: "Fill a form interactively",
		Long: `Asks for every visible field of the named form, validating as it
goes. With --endpoint the values are submitted over HTTP and fields
rejected by the server are asked again. The collected payload is
printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			s, ok := catalog.Form(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q (have %s)", args[0], strings.Join(catalog.Names(), ", "))
			}
			return a.run(cmd, s, opts)
		},
	}
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", a.cfg.Endpoint, "submission URL; {form} is replaced with the form name")
	cmd.Flags().StringVar(&opts.encoding, "encoding", a.cfg.Encoding, "submission encoding (json or form)")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 3, "how often invalid fields are asked again")
	cmd.Flags().StringVar(&opts.theme, "theme", a.cfg.Theme, "go-theme manifest supplying indicator classes")
	cmd.Flags().StringVar(&opts.variant, "variant", a.cfg.ThemeVariant, "theme variant")
	return cmd
}

func (a *app) run(cmd *cobra.Command, s spec.FormSpec, opts runOptions) error {
	doc, err := spec.Document(s)
	if err != nil {
		return err
	}
	classes, err := a.classes(opts.theme, opts.variant)
	if err != nil {
		return err
	}

	sessionOpts := []tui.Option{
		tui.WithPromptDriver(a.driver),
		tui.WithLogger(a.logger),
		tui.WithMaxRounds(opts.rounds),
		tui.WithFeedback(feedback.NewClassSink(doc, classes)),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
	}
	if opts.endpoint != "" {
		t, err := a.httpTransport(opts)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, tui.WithTransport(t))
	}

	session, err := tui.New(doc, s, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := session.Run(cmd.Context())
	if err != nil && !errors.Is(err, tui.ErrUnresolved) {
		return err
	}
	if werr := writeJSON(cmd.OutOrStdout(), runOutput(s.Name, result)); werr != nil {
		return werr
	}
	return err
}

func (a *app) httpTransport(opts runOptions) (form.Transport, error) {
	encoding, err := transport.ParseEncoding(opts.encoding)
	if err != nil {
		return nil, err
	}
	t, err := transport.NewHTTP(opts.endpoint,
		transport.WithClient(a.httpClient()),
		transport.WithEncoding(encoding),
		transport.WithSanitizer(transport.NewSanitizer(nil)),
		transport.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

type runReport struct {
	Form      string       `json:"form"`
	Submitted bool         `json:"submitted"`
	Verdict   string       `json:"verdict,omitempty"`
	Payload   form.Payload `json:"payload"`
}

func runOutput(name string, result tui.Result) runReport {
	out := runReport{Form: name, Submitted: result.Submitted, Payload: result.Payload}
	if result.Submitted {
		out.Verdict = result.Verdict.Kind().String()
	}
	return out
}
