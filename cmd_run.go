package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"volt-data/api"
	"volt-data/cache"
	"volt-data/convert"
	"volt-data/db"
	"volt-data/pipeline"
	"volt-data/presign"
	"volt-data/s3store"
	"volt-data/store"
)

func convertCmd(g *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <file.csv>",
		Short: "Convert a local CSV file to Parquet and verify the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			out := cmd.OutOrStdout()

			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, ".csv") + ".parquet"
			}
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			res, err := convert.CSVToParquet(data)
			if err != nil {
				return fmt.Errorf("convert %s: %w", input, err)
			}
			if err := os.WriteFile(output, res.Parquet, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Converted %s -> %s (%d rows, %d columns, %.2f KB)\n",
				input, output, res.Rows, res.Columns, float64(len(res.Parquet))/1024)

			f, err := parquet.OpenFile(bytes.NewReader(res.Parquet), int64(len(res.Parquet)))
			if err != nil {
				return fmt.Errorf("verify %s: %w", output, err)
			}
			if f.NumRows() != int64(res.Rows) {
				return fmt.Errorf("verify %s: %d rows written, %d read back", output, res.Rows, f.NumRows())
			}
			fmt.Fprintln(out, "Schema:")
			for _, col := range f.Schema().Fields() {
				fmt.Fprintf(out, "  %s: %s\n", col.Name(), col.Type())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Parquet file to write (default: input with .parquet)")
	return cmd
}

func pipelineCmd(g *globalFlags) *cobra.Command {
	var (
		workDir     string
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the daily extract, transform, load and image URL pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			conn, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			st, signer, err := s3store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}

			components := store.NewComponentStore(conn)
			p := pipeline.New(pipeline.Deps{
				DB:         components,
				Components: components,
				Placements: store.NewCategoryStore(conn),
				Uploader:   st,
				Signer:     signer,
			}, pipeline.Options{
				WorkDir:    workDir,
				Retries:    cfg.Pipeline.Retries,
				RetryDelay: cfg.Pipeline.RetryDelay,
				URLExpiry:  cfg.Pipeline.URLExpiry,
				Out:        cmd.OutOrStdout(),
			}, logger)

			_, runErr := p.Run(ctx)
			if metricsFile != "" {
				if err := p.Metrics().WriteTextfile(metricsFile); err != nil {
					logger.Error("metrics not written", zap.String("path", metricsFile), zap.Error(err))
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&workDir, "work-dir", "", "Directory for temporary files (default: system temp dir)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		port    int
		origins []string
		refresh time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only component catalog API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			if port == 0 {
				port = cfg.Port
			}

			conn, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()

			components := store.NewComponentStore(conn)
			categories := store.NewCategoryStore(conn)
			references := store.NewReferenceStore(conn)
			catalog := cache.NewCatalogCache()
			if err := catalog.Load(ctx, components, categories, references); err != nil {
				return err
			}
			logger.Info("catalog cache loaded", zap.Int("components", len(catalog.GetAll())))

			var images api.ImageURLs
			if _, signer, err := s3store.Open(ctx, cfg, logger); err != nil {
				logger.Warn("image URLs disabled", zap.Error(err))
			} else {
				images = presign.NewService(signer, logger)
			}

			if refresh > 0 {
				go refreshCatalog(ctx, catalog, refresh, components, categories, references, logger)
			}

			srv := &http.Server{
				Addr:              ":" + strconv.Itoa(port),
				Handler:           api.NewHandler(catalog, images, logger).Router(origins),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("could not start server: %w", err)
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: PORT or 8080)")
	cmd.Flags().StringSliceVar(&origins, "cors-origins", []string{"*"}, "Allowed CORS origins")
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Minute, "Catalog cache reload interval, 0 disables")
	return cmd
}

func refreshCatalog(ctx context.Context, c *cache.CatalogCache, every time.Duration,
	components cache.ComponentLister, categories cache.CategoryLister, fuses cache.FuseTypeLister, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Load(ctx, components, categories, fuses); err != nil {
				logger.Warn("catalog cache reload failed", zap.Error(err))
				continue
			}
			logger.Debug("catalog cache reloaded", zap.Int("components", len(c.GetAll())))
		}
	}
}
