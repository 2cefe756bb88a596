// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
)

// CreateTableCommandAction provisions the stack's key-value table.
func CreateTableCommandAction(ctx context.Context, cmd *cli.Command) error {
	_, err := RunStepAction(ctx, cmd, func(client provision.CloudClient) provision.Provisioner {
		return &provision.Table{Client: client}
	})
	return err
}

// CreateTableCommandBuilder constructs the cli.Command for "create-table".
func CreateTableCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "create-table",
		Usage:     "provision the key-value table",
		UsageText: `stackup create-table [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags("create-table"),
		Action: CreateTableCommandAction,
	}
}
