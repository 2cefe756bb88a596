// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"

	"github.com/apex/log"

	"github.com/stackup-dev/stackup/internal/stack"
)

// Storage provisions the object-storage bucket. It has no inputs from
// other resources and deploys first so later steps have a home for
// artifacts.
type Storage struct {
	Client CloudClient
}

func (p *Storage) Step() stack.Step {
	return stack.StepStorage
}

func (p *Storage) Ensure(ctx context.Context, cfg *stack.Config) (Result, error) {
	if cfg.StackName == "" {
		return Result{}, dependencyError(string(p.Step()), "stack_name")
	}

	name := cfg.DeriveBucketName()

	var res Result
	err := callWithRetry(ctx, "ensure bucket "+name, func() error {
		id, ok, err := p.Client.ResourceExists(ctx, KindBucket, name)
		if err != nil {
			return err
		}
		if ok {
			log.Infof("bucket %s already exists", name)
			res = Result{Kind: KindBucket, Identifier: id, AlreadyExisted: true}
			return nil
		}

		log.Infof("creating bucket %s", name)
		id, err = p.Client.CreateResource(ctx, ResourceSpec{Kind: KindBucket, Name: name})
		if err != nil {
			return err
		}
		res = Result{Kind: KindBucket, Identifier: id}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	cfg.BucketName = name
	return res, nil
}
