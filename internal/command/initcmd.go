// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/stackup-dev/stackup/internal/config"
	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/stack"
)

// InitCommandAction creates or refreshes the deployment config. Values come
// from flags first; on a TTY, anything still missing is prompted for.
// Re-running init against an existing record only fills gaps, it never
// renames resources already recorded.
func InitCommandAction(ctx context.Context, cmd *cli.Command) error {
	store := openStore(cmd)

	cfg, err := store.Load()
	if err != nil {
		if !errors.Is(err, stack.ErrConfigMissing) {
			return err
		}
		cfg = &stack.Config{}
	} else {
		log.Infof("updating existing deployment config %s", store.Path)
	}

	if v := cmd.String("stack"); v != "" {
		cfg.StackName = v
	}
	if v := cmd.String("region"); v != "" {
		cfg.Region = v
	}
	if v := cmd.String("role-arn"); v != "" {
		cfg.RoleARN = v
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	reader := bufio.NewReader(os.Stdin)
	defRegion, defRole := promptDefaults()

	if cfg.StackName == "" && interactive {
		cfg.StackName = prompt(reader, "stack name", "")
	}
	if cfg.Region == "" && interactive {
		cfg.Region = prompt(reader, "region", defRegion)
	}
	if cfg.RoleARN == "" && interactive {
		cfg.RoleARN = prompt(reader, "execution role ARN", defRole)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("incomplete deployment config: %w", err)
	}

	if err := store.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %s for stack %q in %s\n", store.Path, cfg.StackName, cfg.Region)
	return nil
}

// promptDefaults pulls prompt defaults from the operator's stackup.yaml,
// so an org-wide region or execution role only has to be typed once.
func promptDefaults() (region, roleARN string) {
	region, _ = config.GetString("region", "us-east-1")
	roleARN, _ = config.GetString("role_arn", "")
	return region, roleARN
}

func prompt(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// InitCommandBuilder constructs the cli.Command for "init".
func InitCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "create or update the deployment config",
		UsageText: `stackup init [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "stack",
				Usage: "stack name; resource names derive from it",
			},
			&cli.StringFlag{
				Name:  "role-arn",
				Usage: "execution role the function assumes",
			},
		}, NewGlobalFlags("init")...),
		Action: InitCommandAction,
	}
}
