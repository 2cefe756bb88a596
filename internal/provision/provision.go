// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/cenkalti/backoff/v4"

	"github.com/stackup-dev/stackup/internal/stack"
)

// ResourceKind names the resource kinds the provider boundary understands.
type ResourceKind string

const (
	KindBucket   ResourceKind = "bucket"
	KindTable    ResourceKind = "table"
	KindFunction ResourceKind = "function"
	KindAPI      ResourceKind = "api"
)

// ResourceSpec describes a bucket, table, or API to create. Function
// creation carries enough extra baggage to warrant its own spec.
type ResourceSpec struct {
	Kind ResourceKind
	Name string

	// Table only.
	HashKey string

	// API only.
	Description string
}

// FunctionSpec describes an executable unit to create. Code is referenced
// by bucket/key; packaging and upload happen before the provisioner runs.
type FunctionSpec struct {
	Name       string
	Role       string
	Runtime    string
	Handler    string
	CodeBucket string
	CodeKey    string
	Env        map[string]string
	Timeout    time.Duration
}

// AuthSpec names the user-directory pieces guarding the API: the user
// pool, its app client, and the authorizer bound to them.
type AuthSpec struct {
	PoolName       string
	ClientName     string
	AuthorizerName string
}

// AuthResult carries the identifiers of the ensured auth pieces.
type AuthResult struct {
	UserPoolID   string
	ClientID     string
	AuthorizerID string
}

// CloudClient is the capability set the provisioners need from a cloud
// vendor. Any implementation of these calls is substitutable; the
// orchestration logic never talks to vendor SDKs directly.
type CloudClient interface {
	// ResourceExists reports whether a resource of the given kind and name
	// exists, returning its identifier when it does.
	ResourceExists(ctx context.Context, kind ResourceKind, name string) (id string, ok bool, err error)

	// CreateResource creates a bucket, table, or API and returns its
	// identifier.
	CreateResource(ctx context.Context, spec ResourceSpec) (string, error)

	// CreateFunction creates an executable unit and returns its opaque
	// identifier (an ARN on AWS).
	CreateFunction(ctx context.Context, spec FunctionSpec) (string, error)

	// EnsureAuth provisions the user pool, its app client, and an
	// authorizer on the API bound to them. Existing pieces are reused, so
	// re-running is safe.
	EnsureAuth(ctx context.Context, apiID string, spec AuthSpec) (AuthResult, error)

	// CreateRoute binds a route on the API to the invocation target,
	// guarded by the authorizer when authorizerID is non-empty. Re-binding
	// an existing route is a no-op.
	CreateRoute(ctx context.Context, apiID, routeKey, target, authorizerID string) error
}

// Result is what a provisioner reports back after an Ensure call.
type Result struct {
	Kind           ResourceKind
	Identifier     string
	AlreadyExisted bool
}

// Provisioner idempotently creates one resource kind. Ensure derives the
// resource name from the config, checks provider-side existence, creates
// the resource if absent, and records the resulting identifier back into
// the config. It must be safe to call repeatedly.
type Provisioner interface {
	Step() stack.Step
	Ensure(ctx context.Context, cfg *stack.Config) (Result, error)
}

const maxAttempts = 3

// newBackOff is a seam so tests can drop the delays.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// callWithRetry runs fn, retrying transient provider errors with
// exponential backoff up to maxAttempts total tries. Dependency errors and
// permanent provider errors stop the loop immediately.
func callWithRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0

	bo := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), maxAttempts-1), ctx)

	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			log.Warnf("%s: attempt %d/%d failed, will retry: %v", op, attempt, maxAttempts, err)
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
