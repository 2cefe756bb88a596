// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/config"
	"github.com/stackup-dev/stackup/internal/stack"
)

func init() {
	cfg, _ = config.Load("")
}

var cfg config.Type

// NewGlobalFlags returns the flags shared by every provisioning command.
// params[0] is the command namespace for per-command defaults in
// stackup.yaml (e.g. "deploy.region" overrides "region").
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	ns := ""
	if len(params) > 0 {
		ns = params[0]
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "state",
			Aliases: []string{"s"},
			Usage:   "path of the deployment config file",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STACKUP_STATE"),
				yaml.YAML(ns+"."+"state", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("state", altsrc.StringSourcer(cfg.Source)),
			),
			Value: stack.DefaultPath,
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "AWS shared config profile",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_PROFILE"),
				yaml.YAML(ns+"."+"profile", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("profile", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"r"},
			Usage:   "region override; defaults to the deployment config",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"region", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("region", altsrc.StringSourcer(cfg.Source)),
			),
		},
	}

	return flags
}
