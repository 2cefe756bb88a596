// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
)

// CreateAPICommandAction provisions the HTTP front-end, its authorizer,
// and the route binding to the function.
func CreateAPICommandAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := RunStepAction(ctx, cmd, func(client provision.CloudClient) provision.Provisioner {
		return &provision.API{Client: client}
	})
	if err != nil {
		return err
	}

	if cfg.APIEndpoint != "" {
		fmt.Fprintf(os.Stdout, "endpoint: %s\n", cfg.APIEndpoint)
	}
	return nil
}

// CreateAPICommandBuilder constructs the cli.Command for "create-api".
func CreateAPICommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "create-api",
		Usage:     "provision the HTTP API front-end",
		UsageText: `stackup create-api [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags("create-api"),
		Action: CreateAPICommandAction,
	}
}
