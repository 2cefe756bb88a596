// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
)

// DeployCommandAction runs the whole provisioning sequence, resuming from
// the first incomplete step. Already-completed steps are skipped, so the
// command is safe to re-run after a partial failure.
func DeployCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	store, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if step, ok := cfg.NextStep(); ok {
		log.Infof("deploying stack %s from step %s", cfg.StackName, step)
	} else {
		log.Infof("stack %s is already fully provisioned", cfg.StackName)
	}

	client, err := newCloudClientFn(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	o := provision.NewOrchestrator(store, client)
	if err := o.Run(ctx, cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "stack %s deployed\n", cfg.StackName)
	if cfg.APIEndpoint != "" {
		fmt.Fprintf(os.Stdout, "endpoint: %s\n", cfg.APIEndpoint)
	}
	return nil
}

// DeployCommandBuilder constructs the cli.Command for "deploy".
func DeployCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "provision every resource in dependency order",
		UsageText: `stackup deploy [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags("deploy"),
		Action: DeployCommandAction,
	}
}
