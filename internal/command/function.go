// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/bundle"
	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
)

// CreateFunctionCommandAction packages the function code (when --code is
// given) and provisions the executable unit. The bundle lands in the
// storage bucket under the config's code_key, which is where the create
// call references it.
func CreateFunctionCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	store, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := newCloudClient(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	if codeDir := cmd.String("code"); codeDir != "" {
		if cfg.BucketName == "" {
			return fmt.Errorf("no storage bucket recorded; run `stackup create-storage` before uploading code")
		}
		cfg.DeriveFunctionName()
		if err := bundle.Push(ctx, client, codeDir, cfg.BucketName, cfg.CodeKey); err != nil {
			return err
		}
	}

	p := &provision.Function{Client: client}
	res, err := p.Ensure(ctx, cfg)
	if err != nil {
		return err
	}

	if err := store.Save(cfg); err != nil {
		return err
	}

	printResult(res)
	return nil
}

// CreateFunctionCommandBuilder constructs the cli.Command for
// "create-function".
func CreateFunctionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "create-function",
		Usage:     "package code and provision the function",
		UsageText: `stackup create-function [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "code",
				Aliases: []string{"c"},
				Usage:   "function source directory to package and upload",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("create-function.code", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("code", altsrc.StringSourcer(cfg.Source)),
				),
			},
		}, NewGlobalFlags("create-function")...),
		Action: CreateFunctionCommandAction,
	}
}
