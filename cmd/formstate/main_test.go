package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/transport"
	"github.com/goliatone/go-formstate/pkg/tui"
)

type scriptedDriver struct {
	inputs    []string
	textAreas []string
	selects   []int
	confirms  []bool
	infos     []string
}

func pop[T any](values *[]T) (T, error) {
	var zero T
	if len(*values) == 0 {
		return zero, errors.New("nothing scripted")
	}
	v := (*values)[0]
	*values = (*values)[1:]
	return v, nil
}

func (d *scriptedDriver) answer(values *[]string, validate func(string) error) (string, error) {
	for {
		v, err := pop(values)
		if err != nil {
			return "", err
		}
		if validate == nil || validate(v) == nil {
			return v, nil
		}
	}
}

func (d *scriptedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	return d.answer(&d.inputs, cfg.Validator)
}

func (d *scriptedDriver) Password(_ context.Context, cfg tui.InputConfig) (string, error) {
	return d.answer(&d.inputs, cfg.Validator)
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return pop(&d.confirms)
}

func (d *scriptedDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	for {
		idx, err := pop(&d.selects)
		if err != nil {
			return -1, err
		}
		if cfg.Validator == nil || cfg.Validator(idx) == nil {
			return idx, nil
		}
	}
}

func (d *scriptedDriver) TextArea(_ context.Context, cfg tui.TextAreaConfig) (string, error) {
	return d.answer(&d.textAreas, cfg.Validator)
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

// formsDir copies the sample specs into a temporary directory.
func formsDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	err := fs.WalkDir(testsupport.Forms(), ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		data, err := fs.ReadFile(testsupport.Forms(), path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, path), data, 0o644)
	})
	if err != nil {
		t.Fatalf("copy fixtures: %v", err)
	}
	return dir
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(env.Options{Environment: map[string]string{
		"FORMSTATE_ADDR":    "127.0.0.1:9000",
		"FORMSTATE_TIMEOUT": "3s",
	}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Config{
		LogLevel:  "info",
		LogFormat: "console",
		Forms:     "forms",
		Addr:      "127.0.0.1:9000",
		MaxBody:   1 << 20,
		Encoding:  "json",
		Timeout:   3 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseConfig(env.Options{Environment: map[string]string{"FORMSTATE_MAX_BODY": "lots"}}); err == nil {
		t.Fatalf("expected parse error for invalid size")
	}
}

func TestLoadConfigFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FORMSTATE_ENCODING=form\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("FORMSTATE_ENCODING", "")
	os.Unsetenv("FORMSTATE_ENCODING")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Encoding != "form" {
		t.Fatalf("expected encoding from dotenv, got %q", cfg.Encoding)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	if _, err := newLogger(Config{LogLevel: "debug", LogFormat: "json"}); err != nil {
		t.Fatalf("json logger: %v", err)
	}
	if _, err := newLogger(Config{LogLevel: "info", LogFormat: "xml"}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := newLogger(Config{LogLevel: "loud"}); err == nil {
		t.Fatalf("expected unknown level error")
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	out, err := execute(t, &app{}, "check", dir, "--probe")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{
		"ok   " + dir + ": contact, signup",
		"signup: valid=false",
		"signup.email: empty",
		"signup.kind: -",
		"signup.company: -",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckCommandThemeClasses(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	manifest := filepath.Join(t.TempDir(), "theme.yaml")
	body := "name: acme\nversion: 1.0.0\ntokens:\n  validation.required-class: is-empty\nvariants:\n  dark:\n    tokens:\n      validation.required-class: is-empty-dark\n"
	if err := os.WriteFile(manifest, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, err := execute(t, &app{}, "check", filepath.Join(dir, "signup.yaml"), "--probe", "--theme", manifest, "--variant", "dark")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "signup.email: is-empty-dark") {
		t.Fatalf("expected themed class in output:\n%s", out)
	}
}

func TestCheckCommandReportsBrokenSpecs(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("name: broken\nregions:\n  - name: a\n    parent: a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, &app{}, "check", broken, filepath.Join(dir, "contact.json"))
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("expected check failure, got %v", err)
	}
	if !strings.Contains(out, "FAIL "+broken) || !strings.Contains(out, "ok   "+filepath.Join(dir, "contact.json")) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunCommandWithoutTransport(t *testing.T) {
	t.Parallel()

	driver := &scriptedDriver{textAreas: []string{"hello"}, selects: []int{0}}
	a := &app{driver: driver}
	out, err := execute(t, a, "run", "contact", "--forms", formsDir(t))
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	var report runReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if report.Submitted {
		t.Fatalf("expected no submission without an endpoint")
	}
	want := map[string]any{"message": "hello", "topic": "sales"}
	if diff := cmp.Diff(want, map[string]any(report.Payload)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandSubmitsToServer(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	catalog, err := spec.LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	handler, err := transport.NewHandler(catalog)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	driver := &scriptedDriver{textAreas: []string{"hello"}, selects: []int{1}, confirms: []bool{true}}
	a := &app{driver: driver, client: srv.Client()}
	out, err := execute(t, a, "run", "contact", "--forms", dir, "--endpoint", srv.URL+"/forms/{form}/validate")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	var report runReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !report.Submitted || report.Verdict != "accepted" {
		t.Fatalf("expected accepted submission, got %+v", report)
	}
	if diff := cmp.Diff([]string{"submission accepted"}, driver.infos); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandUnknownForm(t *testing.T) {
	t.Parallel()

	_, err := execute(t, &app{driver: &scriptedDriver{}}, "run", "ghost", "--forms", formsDir(t))
	if err == nil || !strings.Contains(err.Error(), `unknown form "ghost"`) {
		t.Fatalf("expected unknown form error, got %v", err)
	}
}

func TestFromOpenAPICommand(t *testing.T) {
	t.Parallel()

	docPath := filepath.Join(t.TempDir(), "signup.yaml")
	data, err := fs.ReadFile(testsupport.Fixtures(), testsupport.OpenAPIFixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(docPath, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := execute(t, &app{}, "from-openapi", docPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != "createSignup" {
		t.Fatalf("expected operation listing, got %q", out)
	}

	out, err = execute(t, &app{}, "from-openapi", docPath, "--operation", "createSignup", "--name", "signup", "--submit", "send")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	var derived spec.FormSpec
	if err := yaml.Unmarshal([]byte(out), &derived); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, out)
	}
	forms, err := spec.Parse([]byte(out), "derived.yaml")
	if err != nil {
		t.Fatalf("derived spec does not parse: %v\n%s", err, out)
	}
	if forms[0].Name != "signup" || derived.Submit != "send" {
		t.Fatalf("unexpected derived spec: %+v", derived)
	}
	if got := derived.Fields["code"].ValidTemplate; got != "/^[0-9]{3}$/" {
		t.Fatalf("expected pattern template, got %v", got)
	}
}

func TestServeAndReload(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	a := &app{logger: zap.NewNop(), forms: dir}
	handler, err := a.handler(serveOptions{maxBody: 1 << 16})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "contact.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	a.reload(handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/contact", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected removed form to 404, got %d", rec.Code)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a.reload(handler)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/signup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected previous catalog to survive a broken reload, got %d", rec.Code)
	}
}

func TestServeListenerShutsDown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	handler, err := transport.NewHandler(testsupport.MustCatalog(t))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	a := &app{logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serveListener(ctx, ln, handler) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestSpecWatcherReloads(t *testing.T) {
	t.Parallel()

	dir := formsDir(t)
	reloaded := make(chan struct{}, 4)
	w := newSpecWatcher(dir, func() { reloaded <- struct{}{} }, zap.NewNop())
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-reloaded:
			cancel()
			if err := <-errCh; err != nil {
				t.Fatalf("watcher: %v", err)
			}
			return
		case <-tick.C:
			_ = os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte("name: extra\n"), 0o644)
		case <-deadline:
			t.Fatalf("watcher never reloaded")
		}
	}
}
