package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vconv/internal/application/conversion"
	"vconv/internal/infrastructure/ffmpeg"
	"vconv/internal/infrastructure/filesystem"
	httptransport "vconv/internal/transport/http"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func newServeCommand(a *app) *cobra.Command {
	var addr, converterName string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a development conversion server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Server
			if cmd.Flags().Changed("addr") {
				sc.Addr = addr
			}
			if cmd.Flags().Changed("converter") {
				sc.Converter = converterName
			}

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			store := filesystem.NewStore(sc.UploadDir, sc.RenderDir)
			if err := store.EnsureDirs(); err != nil {
				return fmt.Errorf("storage init failed: %w", err)
			}

			var converter conversion.Converter = filesystem.CopyConverter{}
			switch sc.Converter {
			case "copy":
			case "ffmpeg":
				ff := ffmpeg.NewConverter()
				if !ff.Available() {
					return errors.New("ffmpeg and ffprobe must be on PATH")
				}
				converter = ff
			default:
				return fmt.Errorf("unknown converter %q", sc.Converter)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			service := conversion.NewService(store, converter, logger)
			service.StartCleanup(ctx, cleanupInterval, sc.CleanupAge)

			handler := httptransport.NewHandler(service, store, httptransport.Options{
				MaxUploadBytes: sc.MaxUploadBytes,
				StatusRate:     sc.StatusRate,
				Logger:         logger,
			})
			srv := &http.Server{
				Addr:              sc.Addr,
				Handler:           httptransport.WithCORS(httptransport.NewRouter(handler)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Printf("Server started on %s (converter: %s)", sc.Addr, sc.Converter)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			service.Wait()
			logger.Printf("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :5000)")
	cmd.Flags().StringVar(&converterName, "converter", "", "Conversion backend: copy or ffmpeg")
	return cmd
}
