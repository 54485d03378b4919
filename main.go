// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-play-session/internal/app"
	"github.com/AccelByte/extend-play-session/internal/config"
	"github.com/AccelByte/extend-play-session/pkg/common"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var policyPath string

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if policyPath != "" {
			cfg.PolicyPath = policyPath
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		common.ConfigureLogging(cfg.LogLevel)
		return cfg, nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logrus.Infof("starting %s %s", cfg.ServiceName, releaseVersion)

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return application.Run(cmd.Context())
	}

	root := &cobra.Command{
		Use:           "play-session",
		Short:         "Groups players joining a shared play session and broadcasts its state.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&policyPath, "policy", "", "grouping policy file (env: POLICY_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket, gRPC and metrics servers",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Lock every forming session that reached its threshold, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			worker, err := app.NewWorker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			locked, err := worker.ReconcileOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locked %d session(s)\n", locked)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "issue-code",
		Short: "Issue a join code and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			worker, err := app.NewWorker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = worker.Shutdown(context.Background())
			}()

			code, err := worker.IssueJoinCode(cmd.Context())
			if err != nil {
				return err
			}
			if code.ExpiresAt.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), code.Value)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (expires %s)\n", code.Value, code.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	})

	return root
}
