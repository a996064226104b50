package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"volt-data/db"
	"volt-data/export"
	"volt-data/images"
	"volt-data/lake"
	"volt-data/presign"
	"volt-data/s3store"
	"volt-data/store"
)

func lakeCmd(g *globalFlags) *cobra.Command {
	var (
		local string
		toS3  bool
	)

	cmd := &cobra.Command{
		Use:   "lake",
		Short: "Scaffold the raw, staging and mart layout with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local == "" && !toS3 {
				return errors.New("nothing to do: pass --local <dir> and/or --s3")
			}
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if local != "" {
				written, err := lake.Scaffold(ctx, lake.LocalSink{Base: local}, local+"/", logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Local data lake in %s (%d files)\n", local, len(written))
			}

			if toS3 {
				st, _, err := s3store.Open(ctx, cfg, logger)
				if err != nil {
					return err
				}
				created, err := st.EnsureBucket(ctx)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(out, "Created bucket %s\n", st.Bucket())
				}
				written, err := lake.Scaffold(ctx, lake.S3Sink{Store: st}, st.URI(""), logger)
				for _, loc := range written {
					fmt.Fprintf(out, "  %s\n", loc)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "S3 data lake in %s (%d objects)\n", st.URI(""), len(written))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&local, "local", "", "Create the layout below this directory")
	cmd.Flags().BoolVar(&toS3, "s3", false, "Create the layout in the configured bucket")
	return cmd
}

func s3Cmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3",
		Short: "S3 utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "List buckets and check the configured bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			out := cmd.OutOrStdout()

			st, _, err := s3store.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			rep, err := st.CheckConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("S3 connection failed: %w", err)
			}
			fmt.Fprintf(out, "Connected to S3 (%s), %d buckets:\n", cfg.AWS.DefaultRegion, len(rep.Buckets))
			for _, b := range rep.Buckets {
				fmt.Fprintf(out, "  %s\n", b)
			}
			if rep.BucketExists {
				fmt.Fprintf(out, "Bucket %s exists\n", st.Bucket())
			} else {
				fmt.Fprintf(out, "Bucket %s does not exist, run \"volt lake --s3\" to create it\n", st.Bucket())
			}
			return nil
		},
	})
	return cmd
}

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		partition string
		flat      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export components from PostgreSQL to S3 as JSON and CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			conn, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			st, _, err := s3store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}

			exp := export.NewExporter(store.NewComponentStore(conn), store.NewCategoryStore(conn), st, logger)
			records, err := exp.Load(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Read %d components from %s\n", len(records), cfg.Postgres.Target())

			if !flat && partition == "" {
				partition = lake.PartitionDate(time.Now())
			}
			if flat {
				partition = ""
			}
			jsonRes, err := exp.JSON(ctx, records, partition)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "JSON: %s\n", jsonRes.URL)

			csvRes, err := exp.CSV(ctx, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "CSV:  %s\n", csvRes.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition-date", "", "dt= partition of the JSON export (default: today)")
	cmd.Flags().BoolVar(&flat, "flat", false, "Write the JSON export under a timestamped name instead of a partition")
	return cmd
}

func imagesCmd(g *globalFlags) *cobra.Command {
	var (
		dir       string
		batchSize int
		yes       bool
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Upload component images to S3 in batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			imgs, err := images.Find(dir)
			if err != nil {
				return err
			}
			if len(imgs) == 0 {
				fmt.Fprintf(out, "No .jpg files in %s\n", dir)
				return nil
			}
			fmt.Fprintf(out, "Found %d images in %s\n", len(imgs), dir)

			if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Upload %d images to S3? (y/N): ", len(imgs)), "y", "yes") {
				fmt.Fprintln(out, "Upload cancelled")
				return nil
			}

			st, _, err := s3store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			m := images.NewMigrator(st, batchSize, logger)
			m.OnBatch = func(batch, batches, size int) {
				fmt.Fprintf(out, "Batch %d/%d (%d images)\n", batch, batches, size)
			}
			m.OnResult = func(res images.Result) {
				if res.Success() {
					fmt.Fprintf(out, "  ok   %s -> %s\n", res.Filename, res.Key)
				} else {
					fmt.Fprintf(out, "  FAIL %s: %v\n", res.Filename, res.Err)
				}
			}

			started := time.Now()
			results := m.Migrate(ctx, imgs)
			report := images.NewReport(results, started)
			path, err := images.SaveReport(reportDir, report, started)
			if err != nil {
				logger.Warn("report not saved", zap.Error(err))
			} else {
				fmt.Fprintf(out, "Report: %s\n", path)
			}
			fmt.Fprintf(out, "Uploaded %d/%d (%s)\n", report.SuccessfulUploads, report.TotalProcessed, report.SuccessRate)
			if err := ctx.Err(); err != nil {
				return err
			}
			if report.FailedUploads > 0 {
				return fmt.Errorf("%d image uploads failed", report.FailedUploads)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "images", "Directory with <component-id>.jpg files")
	cmd.Flags().IntVar(&batchSize, "batch-size", images.DefaultBatchSize, "Uploads per batch")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the upload confirmation")
	cmd.Flags().StringVar(&reportDir, "report-dir", ".", "Directory for the migration report")
	return cmd
}

func presignCmd(g *globalFlags) *cobra.Command {
	var (
		hours  int
		all    bool
		asJSON bool
		forAPI bool
	)

	cmd := &cobra.Command{
		Use:   "presign [component-id...]",
		Short: "Generate presigned image URLs for components",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("pass component ids or --all")
			}
			if forAPI && len(args) != 1 {
				return errors.New("--api takes exactly one component id")
			}
			if hours < 1 || hours > presign.MaxHours {
				return fmt.Errorf("--hours must be between 1 and %d, got %d", presign.MaxHours, hours)
			}
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			ids := args
			if all {
				conn, err := db.Open(ctx, cfg.Postgres)
				if err != nil {
					return err
				}
				defer conn.Close()
				ids, err = store.NewComponentStore(conn).ListComponentIDs(ctx)
				if err != nil {
					return err
				}
			}

			_, signer, err := s3store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}

			return printPresigned(ctx, out, presign.NewService(signer, logger), ids, hours, asJSON, forAPI)
		},
	}

	cmd.Flags().IntVar(&hours, "hours", int(presign.DefaultExpiry/time.Hour), "URL validity in hours (max 168)")
	cmd.Flags().BoolVar(&all, "all", false, "Sign every component in the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch result as JSON")
	cmd.Flags().BoolVar(&forAPI, "api", false, "Print the frontend API response for one component")
	return cmd
}

// printPresigned signs ids and writes the outcome to out. It returns an error
// when any URL could not be generated.
func printPresigned(ctx context.Context, out io.Writer, svc *presign.Service, ids []string, hours int, asJSON, forAPI bool) error {
	if forAPI {
		res := svc.ComponentImage(ctx, ids[0], hours)
		if err := writeJSON(out, presign.Response(res)); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("presigned URL for %s failed", res.ComponentID)
		}
		return nil
	}

	batch := svc.Components(ctx, ids, hours)
	if asJSON {
		if err := writeJSON(out, batch); err != nil {
			return err
		}
	} else {
		for _, res := range batch.Successful {
			fmt.Fprintf(out, "%s\n  %s\n  expires %s\n", res.ComponentID, res.PresignedURL, res.ExpiresAt)
		}
		for _, res := range batch.Failed {
			fmt.Fprintf(out, "%s: %s\n", res.ComponentID, res.Error)
		}
		fmt.Fprintf(out, "Generated %s URLs\n", batch.SuccessRate)
	}
	if len(batch.Failed) > 0 {
		return fmt.Errorf("%d presigned URLs failed", len(batch.Failed))
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
