// ecosort - waste classification chat in your terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/ecosort/ecosort-tui/internal/cli"

func main() {
	cli.Execute()
}
