// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

// stackup is the main package for the stackup command line tool. It wires the
// CLI, delegates to internal packages, and serves as the entry point.
package main
