package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Doudousmyle42/mangatracker/internal/config"
	"github.com/Doudousmyle42/mangatracker/internal/library"
	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var flagListen string

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "address to listen on (defaults to listen from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openLibrary(config.Options{Listen: flagListen})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	preview, err := providers.NewCached(a.extractor(), a.cfg.PreviewCacheSize)
	if err != nil {
		return err
	}

	router := library.NewRouter(library.NewHandler(a.service, preview), a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := util.SetupInterruptHandler(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("listening on http://%s", a.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	a.log.Infof("shutting down")
	return srv.Shutdown(shutdownCtx)
}
