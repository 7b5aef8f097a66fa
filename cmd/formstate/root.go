package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	theme "github.com/goliatone/go-theme"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/tui"
)

// app carries what the commands share. Tests swap the prompt driver and the
// HTTP client.
type app struct {
	cfg    Config
	logger *zap.Logger
	driver tui.PromptDriver
	client *http.Client

	forms string
}

func newRootCommand(a *app) *cobra.Command {
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	root := &cobra.Command{
		Use:           "formstate",
		Short:         "Validate HTML-style forms from declarative specs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.forms, "forms", "f", a.cfg.Forms, "directory of form spec files")

	root.AddCommand(
		newCheckCommand(a),
		newRunCommand(a),
		newServeCommand(a),
		newFromOpenAPICommand(a),
	)
	return root
}

// catalog loads every spec under the forms directory.
func (a *app) catalog() (*spec.Catalog, error) {
	info, err := os.Stat(a.forms)
	if err != nil {
		return nil, fmt.Errorf("forms directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("forms directory: %s is not a directory", a.forms)
	}
	return spec.LoadFS(os.DirFS(a.forms))
}

// classes resolves indicator classes from the configured theme manifest, or
// the defaults when none is set.
func (a *app) classes(path, variant string) (feedback.Classes, error) {
	if strings.TrimSpace(path) == "" {
		return feedback.DefaultClasses(), nil
	}
	manifest, err := loadManifest(path)
	if err != nil {
		return feedback.Classes{}, err
	}
	provider := theme.NewRegistry()
	if err := provider.Register(manifest); err != nil {
		return feedback.Classes{}, fmt.Errorf("theme %s: %w", path, err)
	}
	return feedback.ManifestClasses(manifest, variant), nil
}

func loadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme: %w", err)
	}
	manifest := &theme.Manifest{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, manifest)
	default:
		err = json.Unmarshal(data, manifest)
	}
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", path, err)
	}
	return manifest, nil
}

func (a *app) httpClient() *http.Client {
	if a.client != nil {
		return a.client
	}
	return &http.Client{Timeout: a.cfg.Timeout}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
