// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/stack"
)

// StatusCommandAction reports which identifiers are recorded and what runs
// next. With --query, a single field is extracted by dotted path and
// printed raw for scripting.
func StatusCommandAction(ctx context.Context, cmd *cli.Command) error {
	store := openStore(cmd)

	raw, err := os.ReadFile(store.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s; run `stackup init` first", stack.ErrConfigMissing, store.Path)
		}
		return err
	}

	if q := cmd.String("query"); q != "" {
		result := gjson.GetBytes(raw, q)
		if !result.Exists() {
			return errors.New("no value at path " + q)
		}
		fmt.Fprintln(os.Stdout, result.String())
		return nil
	}

	cfg, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s %s (%s)\n", labelStyle.Render("stack"), cfg.StackName, cfg.Region)
	for _, step := range stack.Steps() {
		state := existsStyle.Render("pending")
		if cfg.Populated(step) {
			state = createdStyle.Render("done")
		}
		fmt.Fprintf(os.Stdout, "  %-10s %s\n", step, state)
	}

	if step, ok := cfg.NextStep(); ok {
		fmt.Fprintf(os.Stdout, "next step: %s\n", step)
	} else if cfg.APIEndpoint != "" {
		fmt.Fprintf(os.Stdout, "endpoint: %s\n", cfg.APIEndpoint)
	}
	return nil
}

// StatusCommandBuilder constructs the cli.Command for "status".
func StatusCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show recorded identifiers and the next step",
		UsageText: `stackup status [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "print one config field by dotted path (e.g. api_id)",
			},
		}, NewGlobalFlags("status")...),
		Action: StatusCommandAction,
	}
}
