package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"storefront/pkg/blob"
	"storefront/pkg/bus"
	"storefront/pkg/config"
	"storefront/pkg/db"
	gos3 "storefront/pkg/s3"
	"storefront/pkg/telemetry"
	"storefront/services/admin"
	"storefront/services/catalog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		var ferrs admin.FieldErrors
		if errors.As(err, &ferrs) {
			for field, msgs := range ferrs {
				for _, msg := range msgs {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
				}
			}
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operator tooling for the storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newProductsCommand())
	cmd.AddCommand(newEventsCommand())
	return cmd
}

// env bundles what every subcommand loads from the environment.
type env struct {
	cfg    config.Admin
	logger zerolog.Logger
}

func loadEnv(ctx context.Context) (env, error) {
	cfg, err := config.LoadAdmin(ctx)
	if err != nil {
		return env{}, fmt.Errorf("load config: %w", err)
	}
	logger, err := telemetry.NewLogger("storefrontctl", cfg.Level, "console", os.Stderr)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, logger: logger}, nil
}

func newMigrateCommand() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			pool, err := db.Open(ctx, e.cfg.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer pool.Close()

			if statusOnly {
				status, err := db.MigrationStatus(ctx, pool)
				if err != nil {
					return err
				}
				for _, st := range status {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", st.Source.Version, st.State, st.AppliedAt.Format(time.RFC3339))
				}
				return nil
			}

			results, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d in %s\n", res.Source.Version, res.Duration)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database already up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "List migrations and their state without applying any")
	return cmd
}

func newProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Register products and upload their files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newProductsAddCommand())
	cmd.AddCommand(newProductsImportCommand())
	return cmd
}

// withRegistrar opens the database and blob store, runs fn and releases both.
func withRegistrar(ctx context.Context, fn func(*admin.Registrar) error) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}

	orm, err := db.Connect(ctx, e.cfg.DSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(orm) }()

	var files blob.Store
	if e.cfg.Backend == "s3" {
		client, err := gos3.NewClientFromEnv(ctx)
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		if files, err = blob.NewS3Store(client, e.cfg.S3Bucket); err != nil {
			return err
		}
	} else if files, err = blob.NewFSStore(e.cfg.Root); err != nil {
		return err
	}

	products, err := catalog.NewGormRepository(orm)
	if err != nil {
		return err
	}
	registrar, err := admin.NewRegistrar(products, files, e.logger)
	if err != nil {
		return err
	}
	return fn(registrar)
}

func newProductsAddCommand() *cobra.Command {
	var (
		in        admin.NewProduct
		filePath  string
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Validate, upload and register one product",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, up, err := admin.OpenUpload(filePath)
			if err != nil {
				return err
			}
			defer file.Close()
			in.File = up

			if imagePath != "" {
				img, imgUp, err := admin.OpenUpload(imagePath)
				if err != nil {
					return err
				}
				defer img.Close()
				in.Image = imgUp
			}

			return withRegistrar(cmd.Context(), func(r *admin.Registrar) error {
				product, err := r.Add(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", product.ID, product.Name, product.FilePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Product name (3-100 characters)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Product description (10-1000 characters)")
	cmd.Flags().Int64Var(&in.PriceInCents, "price", 0, "Price in cents (100-1000000)")
	cmd.Flags().BoolVar(&in.Available, "available", false, "List the product for purchase immediately")
	cmd.Flags().StringVar(&filePath, "file", "", "Downloadable file (pdf, doc, docx or txt, up to 5MB)")
	cmd.Flags().StringVar(&imagePath, "image", "", "Optional cover image (jpeg, png or webp)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newProductsImportCommand() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Register every product listed in a YAML catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(catalogPath)
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := admin.DecodeCatalog(f)
			if err != nil {
				return err
			}

			return withRegistrar(cmd.Context(), func(r *admin.Registrar) error {
				created, err := r.Import(cmd.Context(), doc, filepath.Dir(catalogPath))
				for _, product := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", product.ID, product.Name, product.FilePath)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&catalogPath, "file", "", "Path to the catalog YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect storefront domain events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newEventsTailCommand())
	return cmd
}

func newEventsTailCommand() *cobra.Command {
	var (
		subject string
		durable string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print domain events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			if e.cfg.NATSURL == "" {
				return errors.New("NATS_URL is required")
			}

			eventBus, err := bus.New(e.cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer eventBus.Close()
			if err := eventBus.EnsureStream(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sub, err := eventBus.Subscribe(ctx, subject, durable, func(_ context.Context, subj string, data []byte) error {
				_, err := fmt.Fprintf(out, "%s\t%s\n", subj, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer sub.Close()

			e.logger.Info().Str("subject", subject).Msg("tailing events, interrupt to stop")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", bus.StreamSubjects, "Subject filter")
	cmd.Flags().StringVar(&durable, "durable", "", "Durable consumer name; empty for an ephemeral consumer")
	return cmd
}
