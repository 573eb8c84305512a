// Command blockloader loads the Ethereum block dataset into BigQuery.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.nownabe.dev/blockloader"
	"go.nownabe.dev/blockloader/contrib/pipelines"
	"go.nownabe.dev/blockloader/internal/config"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "blockloader",
		Short:         "Load the Ethereum block dataset into BigQuery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd(), newSchemaCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform and load the dataset once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	config.BindFlags(cmd.Flags())

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	opts := []blockloader.Option{
		blockloader.WithLogLevel(cfg.LogLevel),
		blockloader.WithLogOutput(os.Stdout),
	}
	if cfg.PrettyLogging {
		opts = append(opts, blockloader.WithPrettyLogging())
	}

	loader, err := blockloader.New(opts...)
	if err != nil {
		return err
	}

	pcfg := pipelines.Config{
		Name:            cfg.Pipeline,
		Table:           cfg.QualifiedTable(),
		Project:         cfg.Project,
		StagingBucket:   cfg.StagingBucket,
		StagingObject:   cfg.StagingObject,
		SourceRoot:      cfg.SourceRoot,
		Format:          cfg.Format,
		Encoding:        cfg.Encoding,
		CredentialsFile: cfg.CredentialsFile,
	}
	if cfg.Slack.Token != "" {
		pcfg.Notifier = &blockloader.SlackNotifier{
			Token:   cfg.Slack.Token,
			Channel: cfg.Slack.Channel,
		}
	}

	clients, err := pipelines.NewClients(ctx, pcfg)
	if err != nil {
		return err
	}
	defer clients.Close()

	p, err := pipelines.EthereumBlocks(pcfg, clients)
	if err != nil {
		return err
	}
	if err := loader.AddPipeline(ctx, p); err != nil {
		return err
	}

	res, err := loader.Run(ctx, p.Name, cfg.DatasetID, cfg.File)
	if err != nil {
		return err
	}

	fmt.Printf("Load complete: %d rows to %s\n", res.RowCount, res.Table)

	return nil
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the block table schema as BigQuery JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := blockloader.BlockSchema.BigQuerySchema().ToJSONFields()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
