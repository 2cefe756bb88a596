// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"time"

	"github.com/apex/log"

	"github.com/stackup-dev/stackup/internal/stack"
)

// Function runtime settings. The handler contract matches the packaged
// code layout produced by internal/bundle.
const (
	functionRuntime = "python3.12"
	functionHandler = "lambda_handler.lambda_handler"
	functionTimeout = 30 * time.Second
)

// Function provisions the executable unit. It depends on the table (the
// table name is injected as an execution-time environment binding) and on
// the storage bucket holding the packaged code.
type Function struct {
	Client CloudClient
}

func (p *Function) Step() stack.Step {
	return stack.StepFunction
}

func (p *Function) Ensure(ctx context.Context, cfg *stack.Config) (Result, error) {
	if cfg.TableName == "" {
		return Result{}, dependencyError(string(p.Step()), "table_name")
	}
	if cfg.BucketName == "" {
		return Result{}, dependencyError(string(p.Step()), "storage_bucket_name")
	}

	name := cfg.DeriveFunctionName()

	var res Result
	err := callWithRetry(ctx, "ensure function "+name, func() error {
		id, ok, err := p.Client.ResourceExists(ctx, KindFunction, name)
		if err != nil {
			return err
		}
		if ok {
			log.Infof("function %s already exists", name)
			res = Result{Kind: KindFunction, Identifier: id, AlreadyExisted: true}
			return nil
		}

		log.Infof("creating function %s", name)
		id, err = p.Client.CreateFunction(ctx, FunctionSpec{
			Name:       name,
			Role:       cfg.RoleARN,
			Runtime:    functionRuntime,
			Handler:    functionHandler,
			CodeBucket: cfg.BucketName,
			CodeKey:    cfg.CodeKey,
			Env:        map[string]string{"TABLE_NAME": cfg.TableName},
			Timeout:    functionTimeout,
		})
		if err != nil {
			return err
		}
		res = Result{Kind: KindFunction, Identifier: id}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	cfg.FunctionARN = res.Identifier
	return res, nil
}
