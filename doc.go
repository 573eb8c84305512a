/*

Package blockloader is a small ETL framework to load the Ethereum block
dataset into BigQuery.

A Pipeline fetches a table from a DatasetSource, normalizes its column names,
casts every column to the type declared in a Schema, stages the result as CSV
on Cloud Storage and replaces the destination table with a BigQuery load job.
BlockSchema is the schema of the block table.

Running on Cloud Functions

Register pipelines once and route Cloud Storage events to them.

	package myfunc

	import (
		"context"
		"os"

		"go.nownabe.dev/blockloader"
		"go.nownabe.dev/blockloader/contrib/pipelines"
	)

	var loader blockloader.BlockLoader

	func init() {
		ctx := context.Background()

		var err error
		loader, err = blockloader.New(blockloader.WithLogLevel("info"))
		if err != nil {
			panic(err)
		}

		cfg := pipelines.Config{
			Name:          "ethereum-blocks",
			Pattern:       "^block_data\\.csv$",
			StagingBucket: os.Getenv("STAGING_BUCKET"),
			Table:         os.Getenv("BIGQUERY_TABLE"),
		}

		clients, err := pipelines.NewClients(ctx, cfg)
		if err != nil {
			panic(err)
		}

		p, err := pipelines.EthereumBlocks(cfg, clients)
		if err != nil {
			panic(err)
		}
		loader.MustAddPipeline(ctx, p)
	}

	// BlockLoad is the entrypoint for Cloud Functions.
	func BlockLoad(ctx context.Context, e blockloader.Event) error {
		return loader.Handle(ctx, e)
	}

Running from a scheduler

The blockloader command in cmd/blockloader runs a single pipeline and exits
non-zero on failure.

*/
package blockloader
