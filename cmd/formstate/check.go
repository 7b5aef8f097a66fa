package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/registry"
	"github.com/goliatone/go-formstate/pkg/spec"
)

var errCheckFailed = errors.New("check failed")

type checkOptions struct {
	probe   bool
	theme   string
	variant string
}

func newCheckCommand(a *app) *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Validate form spec files or directories",
		Long: `Parses and validates every JSON or YAML spec. Directories are walked
and form names must be unique across them. With --probe each form
is validated empty and the indicator classes of its fields are listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{a.forms}
			}
			classes, err := a.classes(opts.theme, opts.variant)
			if err != nil {
				return err
			}
			return a.check(cmd.OutOrStdout(), args, opts.probe, classes)
		},
	}
	cmd.Flags().BoolVar(&opts.probe, "probe", false, "validate each form empty and list indicator classes")
	cmd.Flags().StringVar(&opts.theme, "theme", a.cfg.Theme, "go-theme manifest (JSON or YAML) supplying indicator classes")
	cmd.Flags().StringVar(&opts.variant, "variant", a.cfg.ThemeVariant, "theme variant")
	return cmd
}

func (a *app) check(out io.Writer, paths []string, probe bool, classes feedback.Classes) error {
	failed := false
	for _, path := range paths {
		forms, err := readSpecs(path)
		if err != nil {
			failed = true
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		names := make([]string, 0, len(forms))
		for _, f := range forms {
			names = append(names, f.Name)
		}
		fmt.Fprintf(out, "ok   %s: %s\n", path, strings.Join(names, ", "))

		if !probe {
			continue
		}
		for _, f := range forms {
			lines, err := a.probe(f, classes)
			if err != nil {
				failed = true
				fmt.Fprintf(out, "FAIL %s: %v\n", f.Name, err)
				continue
			}
			for _, line := range lines {
				fmt.Fprintf(out, "     %s\n", line)
			}
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}

// readSpecs parses one file, or every spec file under a directory.
func readSpecs(path string) ([]spec.FormSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return spec.Parse(data, path)
	}

	catalog, err := spec.LoadFS(os.DirFS(path))
	if err != nil {
		return nil, err
	}
	if catalog.Empty() {
		return nil, fmt.Errorf("%w: no spec files under %s", fs.ErrNotExist, filepath.Clean(path))
	}
	out := make([]spec.FormSpec, 0, len(catalog.Names()))
	for _, name := range catalog.Names() {
		f, _ := catalog.Form(name)
		out = append(out, f)
	}
	return out, nil
}

// probe validates an untouched rendering of f and reports the classes left
// on each control. Forms without controls only get their spec checked.
func (a *app) probe(f spec.FormSpec, classes feedback.Classes) ([]string, error) {
	if len(f.Controls) == 0 {
		return []string{f.Name + ": no controls declared"}, nil
	}
	doc, err := spec.Document(f)
	if err != nil {
		return nil, err
	}
	reg := registry.New(doc,
		registry.WithLogger(a.logger),
		registry.WithFeedback(feedback.NewClassSink(doc, classes)),
	)
	defer reg.Close()
	if err := reg.Register(f, nil); err != nil {
		return nil, err
	}
	valid, err := reg.Validate(f.Name)
	if err != nil {
		return nil, err
	}

	node, _ := doc.FormNode(f.Name)
	lines := []string{fmt.Sprintf("%s: valid=%t", f.Name, valid)}
	seen := map[string]bool{}
	for _, el := range node.Elements() {
		if seen[el.Name()] || el.Kind() == control.KindSubmit || el.Kind() == control.KindButton {
			continue
		}
		seen[el.Name()] = true
		state := "-"
		if cls := el.Classes(); len(cls) > 0 {
			state = strings.Join(cls, " ")
		}
		lines = append(lines, fmt.Sprintf("%s.%s: %s", f.Name, el.Name(), state))
	}
	return lines, nil
}
