// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - View and edit ecosort configuration.
//
// Commands:
//   config show            Print the effective configuration as JSON
//   config get <key>       Print one value (dot notation, e.g. api.base_url)
//   config set <key> <v>   Change one value and save
//   config path            Print the config file location

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecosort/ecosort-tui/internal/config"
)

func newConfigCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), st.cfg.String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Long: fmt.Sprintf(`Print one configuration value by its dotted key.

Keys:
  %s`, strings.Join(sortedKeys(), "\n  ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := st.cfg.Get(args[0])
			if err != nil {
				return NewValidationError("key", args[0], err.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one configuration value and save it",
		Example: `  ecosort config set api.base_url https://ecosort.example.com/api`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw := args[0], args[1]
			next := st.cfg.Clone()
			if err := next.Set(key, raw); err != nil {
				return NewValidationError("key", key, err.Error())
			}
			if err := next.Validate(); err != nil {
				return NewValidationError(key, raw, err.Error())
			}

			path := st.configPath
			if path == "" {
				p, err := config.ConfigPathTOML()
				if err != nil {
					return &configError{err: err}
				}
				path = p
			}
			if err := config.SaveTOML(next, path); err != nil {
				return &configError{err: err}
			}
			st.cfg = next
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, raw)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := st.configPath
			if path == "" {
				p, err := config.ConfigPathTOML()
				if err != nil {
					return &configError{err: err}
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}

func sortedKeys() []string {
	keys := config.GetAllKeys()
	sort.Strings(keys)
	return keys
}
