// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"

	"github.com/apex/log"

	"github.com/stackup-dev/stackup/internal/stack"
)

// tableHashKey is the static primary-key schema for the stack's key-value
// table. The application addresses items by a single string id.
const tableHashKey = "id"

// Table provisions the key-value table.
type Table struct {
	Client CloudClient
}

func (p *Table) Step() stack.Step {
	return stack.StepTable
}

func (p *Table) Ensure(ctx context.Context, cfg *stack.Config) (Result, error) {
	if cfg.StackName == "" {
		return Result{}, dependencyError(string(p.Step()), "stack_name")
	}

	name := cfg.DeriveTableName()

	var res Result
	err := callWithRetry(ctx, "ensure table "+name, func() error {
		// The existence check is authoritative. A table name left in the
		// config from an earlier run is not trusted if the table was
		// deleted out-of-band.
		id, ok, err := p.Client.ResourceExists(ctx, KindTable, name)
		if err != nil {
			return err
		}
		if ok {
			log.Infof("table %s already exists", name)
			res = Result{Kind: KindTable, Identifier: id, AlreadyExisted: true}
			return nil
		}

		log.Infof("creating table %s", name)
		id, err = p.Client.CreateResource(ctx, ResourceSpec{
			Kind:    KindTable,
			Name:    name,
			HashKey: tableHashKey,
		})
		if err != nil {
			return err
		}
		res = Result{Kind: KindTable, Identifier: id}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	cfg.TableName = name
	return res, nil
}
