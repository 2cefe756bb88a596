// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	awsx "github.com/stackup-dev/stackup/internal/aws"
	"github.com/stackup-dev/stackup/internal/meta"
	"github.com/stackup-dev/stackup/internal/provision"
	"github.com/stackup-dev/stackup/internal/stack"
)

var (
	createdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	existsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

func openStore(cmd *cli.Command) *stack.Store {
	return stack.NewStore(cmd.String("state"))
}

// loadConfig reads the deployment record, pointing the user at init when
// none exists yet.
func loadConfig(cmd *cli.Command) (*stack.Store, *stack.Config, error) {
	store := openStore(cmd)
	cfg, err := store.Load()
	if err != nil {
		if errors.Is(err, stack.ErrConfigMissing) {
			return nil, nil, fmt.Errorf("%w; run `stackup init` first", err)
		}
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid deployment config %s: %w", store.Path, err)
	}
	return store, cfg, nil
}

// newCloudClientFn is a seam so command tests can substitute a fake
// provider client.
var newCloudClientFn = func(ctx context.Context, cmd *cli.Command, cfg *stack.Config) (provision.CloudClient, error) {
	return newCloudClient(ctx, cmd, cfg)
}

// newCloudClient builds the AWS-backed provider client. Region precedence
// is flag, then deployment config.
func newCloudClient(ctx context.Context, cmd *cli.Command, cfg *stack.Config) (*awsx.Client, error) {
	region := cmd.String("region")
	if region == "" {
		region = cfg.Region
	}

	opts := []awsx.Option{awsx.WithRegion(region)}
	if p := cmd.String("profile"); p != "" {
		opts = append(opts, awsx.WithProfile(p))
	}

	awsCfg, err := awsx.LoadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsx.NewClient(awsCfg), nil
}

// RunStepAction is the shared action body for the single-step create-*
// commands: load the record, run one provisioner, persist, report. It
// returns the saved config so callers can print identifiers from it
// without re-reading the file.
func RunStepAction(ctx context.Context, cmd *cli.Command, build func(provision.CloudClient) provision.Provisioner) (*stack.Config, error) {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	store, cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	client, err := newCloudClientFn(ctx, cmd, cfg)
	if err != nil {
		return nil, err
	}

	p := build(client)
	res, err := p.Ensure(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Save(cfg); err != nil {
		return nil, err
	}

	printResult(res)
	return cfg, nil
}

func printResult(res provision.Result) {
	verb := createdStyle.Render("created")
	if res.AlreadyExisted {
		verb = existsStyle.Render("exists")
	}
	fmt.Fprintf(os.Stdout, "%s %s %s\n", labelStyle.Render(string(res.Kind)), res.Identifier, verb)
}
