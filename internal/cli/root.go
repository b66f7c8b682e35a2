// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/config"
	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT STATE
// =============================================================================

// rootState is shared by every command of one tree. It holds the global
// flags and the lazily built App.
type rootState struct {
	configPath string
	apiURL     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	app    *App

	// gateway and instant are test hooks passed to NewApp.
	gateway *gateway.Client
	instant bool
}

// loadConfig resolves --config, applies --api-url and builds the logger.
func (st *rootState) loadConfig(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if st.configPath != "" {
		cfg, err = config.LoadFromPath(st.configPath)
		if err != nil {
			return &configError{err: err}
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return &configError{err: err}
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
		}
	}
	if st.apiURL != "" {
		cfg.API.BaseURL = st.apiURL
	}
	st.cfg = cfg

	logger, err := logging.New(cfg, logging.Options{Verbose: st.verbose})
	if err != nil {
		return &configError{err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	st.logger = logger
	return nil
}

// open returns the App, building it on first use. instant disables the
// typing effect.
func (st *rootState) open(instant bool) (*App, error) {
	if st.app != nil {
		return st.app, nil
	}
	app, err := NewApp(st.cfg, st.logger, AppOptions{Instant: instant, Gateway: st.gateway})
	if err != nil {
		return nil, err
	}
	st.app = app
	return app, nil
}

// close releases the App and flushes the logger. PersistentPostRun does not
// run when a command fails, so Execute calls it as well.
func (st *rootState) close() {
	if st.app != nil {
		st.app.Close()
		st.app = nil
	}
	if st.logger != nil {
		_ = st.logger.Sync()
	}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootState{})
}

func newRootCmd(st *rootState) *cobra.Command {
	var plain bool

	root := &cobra.Command{
		Use:   "ecosort",
		Short: "EcoSort - waste classification chat in your terminal",
		Long: `EcoSort answers recycling questions and classifies photos of waste.

Run without a subcommand to open the chat screen. Type a question, or
attach a photo with /attach <path>, and press Enter.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			st.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st, plain)
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", "", "config file (default ~/.ecosort/config.toml)")
	root.PersistentFlags().StringVar(&st.apiURL, "api-url", "", "backend base URL, including /api")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "log debug output to stderr")
	root.Flags().BoolVar(&plain, "plain", false, "use the line-based chat instead of the full screen")

	root.AddCommand(
		newChatCmd(st),
		newAskCmd(st),
		newClassifyCmd(st),
		newLoginCmd(st),
		newRegisterCmd(st),
		newVerifyCmd(st),
		newForgotPasswordCmd(st),
		newResetPasswordCmd(st),
		newLogoutCmd(st),
		newWhoamiCmd(st),
		newTokenCmd(st),
		newFeedbackCmd(st),
		newConfigCmd(st),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits with the error's code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	st := &rootState{}
	err := newRootCmd(st).ExecuteContext(ctx)
	st.close()
	stop()
	if err != nil {
		DisplayError(os.Stderr, err)
		os.Exit(ExitCode(err))
	}
}
