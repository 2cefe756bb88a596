// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
)

// CreateStorageCommandAction provisions the stack's object-storage bucket.
func CreateStorageCommandAction(ctx context.Context, cmd *cli.Command) error {
	_, err := RunStepAction(ctx, cmd, func(client provision.CloudClient) provision.Provisioner {
		return &provision.Storage{Client: client}
	})
	return err
}

// CreateStorageCommandBuilder constructs the cli.Command for
// "create-storage".
func CreateStorageCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "create-storage",
		Usage:     "provision the object-storage bucket",
		UsageText: `stackup create-storage [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags("create-storage"),
		Action: CreateStorageCommandAction,
	}
}
