// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

// Package command defines the CLI command set for stackup. It wires flags,
// actions, and shell completion for subcommands; the provisioning logic
// itself lives in internal/provision.
package command
