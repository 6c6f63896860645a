// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/stackwatch/swiftmeter/pkg/collector"
	"github.com/stackwatch/swiftmeter/pkg/keystone"
	"github.com/stackwatch/swiftmeter/pkg/logger"
	"github.com/stackwatch/swiftmeter/pkg/report"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Collect per-tenant object storage usage",
	Long: `Collect usage statistics from every tenant's storage account (or a
filtered subset) in one batch run and render them as a console table plus an
optional CSV file. Tenants whose probe fails are reported as marked rows
instead of aborting the run.`,
	Run: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().Int("parallel", collector.DefaultWorkers, "Number of parallel account probes")
	usageCmd.Flags().String("output", "", "CSV output file path (empty: console only)")
	usageCmd.Flags().Bool("human", false, "Render numeric columns as human-readable magnitudes")
	usageCmd.Flags().StringSlice("tenant", nil, "Restrict the run to these tenant names or IDs (repeatable)")
	usageCmd.Flags().Duration("timeout", swift.DefaultProbeTimeout, "Per-account probe timeout")
}

func runUsage(cmd *cobra.Command, args []string) {
	flags := NewFlagLoader(cmd)
	ctx := context.Background()

	identityCfg := keystone.DefaultConfig()
	if err := viper.Unmarshal(&identityCfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid identity configuration")
	}

	client, err := keystone.NewClient(identityCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("identity configuration incomplete (set OS_AUTH_URL, OS_USERNAME, OS_PASSWORD)")
	}

	// One token for the whole run; workers reuse it read-only.
	session, err := client.Authenticate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("authentication failed")
	}

	directory, err := keystone.NewDirectory(client, session)
	if err != nil {
		logger.Fatal().Err(err).Msg("no public object-store endpoint in catalog")
	}

	prober := swift.NewAccountProber(
		swift.NewAccountClient(flags.Duration("timeout")),
		session.Token,
	)

	builder := report.NewBuilder(report.Config{
		Human:      flags.Bool("human"),
		OutputPath: flags.String("output"),
	})

	run := collector.NewRun(collector.RunConfig{
		Workers: flags.Int("parallel"),
		Filter:  flags.StringSlice("tenant"),
	}, directory, prober, builder)

	records, err := run.Execute(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("usage run failed")
	}

	totals := report.Summarize(records)
	logger.Info().
		Int("tenants", totals.Tenants).
		Int("failed", totals.Failed).
		Int("policies", totals.Policies).
		Str("bytes", humanize.IBytes(totals.Bytes)).
		Str("objects", humanize.Comma(int64(totals.Objects))).
		Msg("run complete")
}
