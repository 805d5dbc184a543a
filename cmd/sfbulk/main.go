package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"sfbulk/internal/auth"
	"sfbulk/internal/config"
	"sfbulk/internal/metrics"
	"sfbulk/pkg/bulk"
	"sfbulk/pkg/dataset"
	"sfbulk/pkg/logging"
	"sfbulk/pkg/shutdown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	outPath    string

	log    *logging.Logger
	client *bulk.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "sfbulk",
		Short:         "Submit and download Salesforce Bulk API jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVarP(&a.outPath, "out", "o", "", "write results to file instead of stdout")

	root.AddCommand(a.queryCmd(), a.loadCmd(), a.abortCmd())
	return root
}

// setup loads config, logs in, and builds the bulk client. It runs once per
// invocation, inside whichever subcommand was chosen.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.log = logging.New(cfg.LogLevel)

	httpClient := http.DefaultClient
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		httpClient = &http.Client{Transport: metrics.NewTransport(reg, nil)}

		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Warn("metrics listener exited", "err", err)
			}
		}()
		go shutdown.Graceful(
			[]os.Signal{os.Interrupt, syscall.SIGTERM},
			5*time.Second,
			a.log,
			srv,
		)
		a.log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	login, err := auth.New(auth.Config{
		Username:      cfg.Auth.Username,
		Password:      cfg.Auth.Password,
		SecurityToken: cfg.Auth.SecurityToken,
		Sandbox:       cfg.Auth.Sandbox,
		APIVersion:    cfg.API.Version,
		HTTPClient:    httpClient,
	})
	if err != nil {
		return err
	}

	session, err := login.Login(ctx)
	if err != nil {
		return err
	}
	a.log.Info("logged in", "user", cfg.Auth.Username)

	client, err := bulk.NewClient(bulk.Config{
		Session:      session,
		APIVersion:   cfg.API.Version,
		BatchSize:    cfg.API.BatchSize,
		PollTimeout:  cfg.Poll.Timeout,
		PollInterval: cfg.Poll.Interval,
		HTTPClient:   httpClient,
		Logger:       a.log,
	})
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <soql>",
		Short: "Run a SOQL query as a bulk job and download the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			jobID, err := a.client.Query(ctx, args[0])
			if err != nil {
				return err
			}

			ds, err := a.client.QueryResults(ctx, jobID)
			if err != nil {
				return err
			}
			a.log.Info("query finished", "job_id", jobID, "rows", ds.NumRows())
			return a.writeResult(ds)
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	var externalIDField string
	var noClose bool

	cmd := &cobra.Command{
		Use:   "load <operation> <object> <csv-file>",
		Short: "Submit a CSV dataset as a bulk data operation",
		Long: "Submit a CSV dataset as a bulk data operation.\n" +
			"Operation is one of: insert, upsert, update, delete, hardDelete.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			f, err := os.Open(args[2])
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			ds, err := dataset.ReadCSV(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			jobID, err := a.client.CreateJob(ctx, bulk.JobConfig{
				Operation:       bulk.Operation(args[0]),
				Object:          args[1],
				ExternalIDField: externalIDField,
				ContentType:     "CSV",
			})
			if err != nil {
				return err
			}

			batches, err := a.client.SubmitData(ctx, jobID, ds, !noClose)
			if err != nil {
				return err
			}
			a.log.Info("submitted dataset",
				"job_id", jobID, "rows", ds.NumRows(), "batches", len(batches))

			results, err := a.client.OperationResults(ctx, jobID)
			if err != nil {
				return err
			}
			return a.writeResult(results)
		},
	}
	cmd.Flags().StringVar(&externalIDField, "external-id-field", "", "external id field, required for upsert")
	cmd.Flags().BoolVar(&noClose, "no-close", false, "leave the job open after submitting")
	return cmd
}

func (a *app) abortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort <job-id>",
		Short: "Abort a bulk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			return a.client.AbortJob(ctx, args[0])
		},
	}
}

func (a *app) writeResult(ds dataset.Dataset) error {
	if a.outPath == "" {
		return ds.WriteCSV(os.Stdout)
	}

	f, err := os.Create(a.outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := ds.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
