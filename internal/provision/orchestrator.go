// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"

	"github.com/stackup-dev/stackup/internal/stack"
)

// Saver persists the deployment record after each successful step.
type Saver interface {
	Save(*stack.Config) error
}

// Phase is the orchestrator's position in its run.
type Phase int

const (
	Pending Phase = iota
	Running
	StepFailed
	Completed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case StepFailed:
		return "step-failed"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// RunStatus is the terminal (or current) state of a run.
type RunStatus struct {
	Phase Phase
	Step  stack.Step
	Err   error
}

// StepError reports which step failed, the underlying provider error, and
// the identifiers persisted before the failure, so a human can diagnose
// and re-run. Earlier resources are left intact; there is no rollback.
type StepError struct {
	Step      stack.Step
	Err       error
	Persisted map[string]string
}

func (e *StepError) Error() string {
	var ids []string
	for _, k := range []string{"storage_bucket_name", "table_name", "function_arn", "api_id"} {
		if v := e.Persisted[k]; v != "" {
			ids = append(ids, k+"="+v)
		}
	}
	msg := fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
	if len(ids) > 0 {
		msg += " (already persisted: " + strings.Join(ids, ", ") + ")"
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator sequences the provisioners in dependency order, folds each
// step's outputs into the config, and persists the config after every
// successful step. It owns the Config exclusively for the duration of a
// run; there is no concurrent provisioning because every step consumes the
// previous step's outputs.
type Orchestrator struct {
	store        Saver
	provisioners []Provisioner
	status       RunStatus
}

// NewOrchestrator builds an orchestrator over the standard sequence
// Storage, Table, Function, API.
func NewOrchestrator(store Saver, client CloudClient) *Orchestrator {
	return &Orchestrator{
		store: store,
		provisioners: []Provisioner{
			&Storage{Client: client},
			&Table{Client: client},
			&Function{Client: client},
			&API{Client: client},
		},
	}
}

// Status returns the state the last Run ended in.
func (o *Orchestrator) Status() RunStatus {
	return o.status
}

// Run executes the remaining steps of the deployment. Steps whose output
// identifier is already recorded are skipped, which is how a run resumes
// after an earlier failure without redoing completed work. On the first
// failure the run halts; no later steps execute.
func (o *Orchestrator) Run(ctx context.Context, cfg *stack.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, p := range o.provisioners {
		step := p.Step()

		if cfg.Populated(step) {
			log.Debugf("step %s already complete, skipping", step)
			continue
		}

		o.status = RunStatus{Phase: Running, Step: step}
		log.Infof("running step %s", step)

		res, err := p.Ensure(ctx, cfg)
		if err != nil {
			o.status = RunStatus{Phase: StepFailed, Step: step, Err: err}
			return &StepError{Step: step, Err: err, Persisted: o.persisted(cfg)}
		}

		if res.AlreadyExisted {
			log.Infof("step %s: %s %s already existed", step, res.Kind, res.Identifier)
		} else {
			log.Infof("step %s: created %s %s", step, res.Kind, res.Identifier)
		}

		if err := o.store.Save(cfg); err != nil {
			o.status = RunStatus{Phase: StepFailed, Step: step, Err: err}
			return &StepError{Step: step, Err: err, Persisted: o.persisted(cfg)}
		}
	}

	o.status = RunStatus{Phase: Completed}
	return nil
}

func (o *Orchestrator) persisted(cfg *stack.Config) map[string]string {
	return map[string]string{
		"storage_bucket_name": cfg.BucketName,
		"table_name":          cfg.TableName,
		"function_arn":        cfg.FunctionARN,
		"api_id":              cfg.APIID,
	}
}
