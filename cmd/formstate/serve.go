package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/transport"
)

type serveOptions struct {
	addr    string
	watch   bool
	maxBody int64
}

func newServeCommand(a *app) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve server-side re-validation of submissions",
		Long: `Serves the forms directory over HTTP:

  GET  /healthz
  GET  /forms/
  GET  /forms/{form}
  POST /forms/{form}/validate

Validation replies use the verdict format understood by the HTTP
transport. With --watch the catalog is reloaded when spec files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := a.handler(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.watch {
				w := newSpecWatcher(a.forms, func() { a.reload(handler) }, a.logger)
				go func() {
					if err := w.Run(ctx); err != nil {
						a.logger.Error("spec watcher stopped", zap.Error(err))
					}
				}()
			}
			return a.serve(ctx, opts.addr, handler)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", a.cfg.Addr, "listen address")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload specs when files change")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", a.cfg.MaxBody, "largest accepted request body in bytes")
	return cmd
}

func (a *app) handler(opts serveOptions) (*transport.Handler, error) {
	catalog, err := a.catalog()
	if err != nil {
		return nil, err
	}
	a.logger.Info("loaded form specs", zap.String("dir", a.forms), zap.Strings("forms", catalog.Names()))
	return transport.NewHandler(catalog,
		transport.WithHandlerLogger(a.logger),
		transport.WithMaxBodySize(opts.maxBody),
	)
}

// reload swaps in a fresh catalog. A broken edit keeps the previous one.
func (a *app) reload(h *transport.Handler) {
	catalog, err := a.catalog()
	if err != nil {
		a.logger.Warn("spec reload failed, keeping previous catalog", zap.Error(err))
		return
	}
	h.SetCatalog(catalog)
	a.logger.Info("reloaded form specs", zap.Strings("forms", catalog.Names()))
}

func (a *app) serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.serveListener(ctx, ln, h)
}

func (a *app) serveListener(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
