// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackup-dev/stackup/internal/stack"
)

type fakeRoute struct {
	apiID        string
	routeKey     string
	target       string
	authorizerID string
}

// fakeCloud is an in-memory CloudClient. Error queues allow tests to
// script transient failures ahead of a success.
type fakeCloud struct {
	buckets   map[string]bool
	tables    map[string]bool
	functions map[string]string
	apis      map[string]string
	pools     map[string]string
	routes    []fakeRoute

	existsCalls map[ResourceKind]int
	createCalls map[ResourceKind]int
	authCalls   int
	poolCreates int

	existsErrs []error
	createErrs []error
	authErrs   []error
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		buckets:     map[string]bool{},
		tables:      map[string]bool{},
		functions:   map[string]string{},
		apis:        map[string]string{},
		pools:       map[string]string{},
		existsCalls: map[ResourceKind]int{},
		createCalls: map[ResourceKind]int{},
	}
}

func (f *fakeCloud) popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *fakeCloud) ResourceExists(_ context.Context, kind ResourceKind, name string) (string, bool, error) {
	f.existsCalls[kind]++
	if err := f.popErr(&f.existsErrs); err != nil {
		return "", false, err
	}
	switch kind {
	case KindBucket:
		return name, f.buckets[name], nil
	case KindTable:
		return name, f.tables[name], nil
	case KindFunction:
		arn, ok := f.functions[name]
		return arn, ok, nil
	case KindAPI:
		id, ok := f.apis[name]
		return id, ok, nil
	}
	return "", false, fmt.Errorf("unknown kind %q", kind)
}

func (f *fakeCloud) CreateResource(_ context.Context, spec ResourceSpec) (string, error) {
	f.createCalls[spec.Kind]++
	if err := f.popErr(&f.createErrs); err != nil {
		return "", err
	}
	switch spec.Kind {
	case KindBucket:
		f.buckets[spec.Name] = true
		return spec.Name, nil
	case KindTable:
		f.tables[spec.Name] = true
		return spec.Name, nil
	case KindAPI:
		id := "api-" + spec.Name
		f.apis[spec.Name] = id
		return id, nil
	}
	return "", fmt.Errorf("unknown kind %q", spec.Kind)
}

func (f *fakeCloud) CreateFunction(_ context.Context, spec FunctionSpec) (string, error) {
	f.createCalls[KindFunction]++
	if err := f.popErr(&f.createErrs); err != nil {
		return "", err
	}
	arn := "arn:aws:lambda:test:123456789012:function:" + spec.Name
	f.functions[spec.Name] = arn
	return arn, nil
}

func (f *fakeCloud) EnsureAuth(_ context.Context, apiID string, spec AuthSpec) (AuthResult, error) {
	f.authCalls++
	if err := f.popErr(&f.authErrs); err != nil {
		return AuthResult{}, err
	}
	poolID, ok := f.pools[spec.PoolName]
	if !ok {
		f.poolCreates++
		poolID = "pool-" + spec.PoolName
		f.pools[spec.PoolName] = poolID
	}
	return AuthResult{
		UserPoolID:   poolID,
		ClientID:     "client-" + spec.ClientName,
		AuthorizerID: "auth-" + spec.AuthorizerName,
	}, nil
}

func (f *fakeCloud) CreateRoute(_ context.Context, apiID, routeKey, target, authorizerID string) error {
	for i, r := range f.routes {
		if r.apiID == apiID && r.routeKey == routeKey {
			f.routes[i].target = target
			f.routes[i].authorizerID = authorizerID
			return nil
		}
	}
	f.routes = append(f.routes, fakeRoute{apiID: apiID, routeKey: routeKey, target: target, authorizerID: authorizerID})
	return nil
}

func newTestConfig() *stack.Config {
	return &stack.Config{StackName: "demo", Region: "us-east-1"}
}

func TestMain(m *testing.M) {
	// No backoff delays in tests.
	newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	os.Exit(m.Run())
}

func TestStorageEnsure_Idempotent(t *testing.T) {
	cloud := newFakeCloud()
	p := &Storage{Client: cloud}
	cfg := newTestConfig()

	first, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, first.AlreadyExisted)
	assert.NotEmpty(t, cfg.BucketName)

	second, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExisted)
	assert.Equal(t, first.Identifier, second.Identifier)
	assert.Equal(t, 1, cloud.createCalls[KindBucket], "second ensure must not create a duplicate")
}

func TestTableEnsure_RecreatesAfterOutOfBandDelete(t *testing.T) {
	cloud := newFakeCloud()
	p := &Table{Client: cloud}

	// Config carries a name from an earlier run, but the table is gone on
	// the provider side. The existence check wins over the stale value.
	cfg := newTestConfig()
	cfg.TableName = "demo-table"

	res, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.AlreadyExisted)
	assert.Equal(t, 1, cloud.createCalls[KindTable])
	assert.True(t, cloud.tables["demo-table"])
}

func TestFunctionEnsure_DependencyUnsatisfied(t *testing.T) {
	p := &Function{Client: newFakeCloud()}

	cfg := newTestConfig()
	cfg.BucketName = "demo-bucket-ab12cd34"
	// table_name deliberately absent.

	_, err := p.Ensure(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyUnsatisfied)
	assert.Contains(t, err.Error(), "table_name")
}

func TestFunctionEnsure_WiresTableBinding(t *testing.T) {
	cloud := newFakeCloud()
	var gotSpec FunctionSpec
	p := &Function{Client: &specRecorder{fakeCloud: cloud, onFunction: func(s FunctionSpec) { gotSpec = s }}}

	cfg := newTestConfig()
	cfg.BucketName = "demo-bucket-ab12cd34"
	cfg.TableName = "demo-table"
	cfg.RoleARN = "arn:aws:iam::123456789012:role/demo"

	res, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Identifier, cfg.FunctionARN)
	assert.Equal(t, "demo-table", gotSpec.Env["TABLE_NAME"])
	assert.Equal(t, "demo-bucket-ab12cd34", gotSpec.CodeBucket)
	assert.Equal(t, cfg.CodeKey, gotSpec.CodeKey)
	assert.Equal(t, cfg.RoleARN, gotSpec.Role)
}

// specRecorder snoops on the FunctionSpec passed through to the fake.
type specRecorder struct {
	*fakeCloud
	onFunction func(FunctionSpec)
}

func (r *specRecorder) CreateFunction(ctx context.Context, spec FunctionSpec) (string, error) {
	r.onFunction(spec)
	return r.fakeCloud.CreateFunction(ctx, spec)
}

func TestAPIEnsure_DependencyUnsatisfied(t *testing.T) {
	p := &API{Client: newFakeCloud()}

	_, err := p.Ensure(context.Background(), newTestConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyUnsatisfied)
	assert.Contains(t, err.Error(), "function_arn")
}

func TestAPIEnsure_RoutesToFunction(t *testing.T) {
	cloud := newFakeCloud()
	p := &API{Client: cloud}

	cfg := newTestConfig()
	cfg.FunctionARN = "arn:aws:lambda:test:123456789012:function:demo-fn"

	res, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Identifier, cfg.APIID)
	assert.Contains(t, cfg.APIEndpoint, cfg.APIID)

	require.Len(t, cloud.routes, 1)
	assert.Equal(t, cfg.APIID, cloud.routes[0].apiID)
	assert.Equal(t, cfg.FunctionARN, cloud.routes[0].target)

	// A rerun keeps the single route.
	_, err = p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, cloud.routes, 1)
}

func TestAPIEnsure_GuardsRouteWithAuthorizer(t *testing.T) {
	cloud := newFakeCloud()
	p := &API{Client: cloud}

	cfg := newTestConfig()
	cfg.FunctionARN = "arn:aws:lambda:test:123456789012:function:demo-fn"

	_, err := p.Ensure(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "pool-demo-users", cfg.UserPoolID)
	assert.Equal(t, "client-demo-client", cfg.UserPoolClientID)
	assert.Equal(t, "auth-demo-auth", cfg.AuthorizerID)

	require.Len(t, cloud.routes, 1)
	assert.Equal(t, cfg.AuthorizerID, cloud.routes[0].authorizerID)

	// A rerun reuses the existing user pool.
	_, err = p.Ensure(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cloud.poolCreates)
	assert.Equal(t, 2, cloud.authCalls)
}

func TestAPIEnsure_AuthFailureSurfaces(t *testing.T) {
	cloud := newFakeCloud()
	cloud.authErrs = []error{
		PermanentError("create user pool", errors.New("limit exceeded")),
	}
	p := &API{Client: cloud}

	cfg := newTestConfig()
	cfg.FunctionARN = "arn:aws:lambda:test:123456789012:function:demo-fn"

	_, err := p.Ensure(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit exceeded")
	assert.Empty(t, cfg.APIID, "a failed auth step must not mark the api complete")
	assert.Empty(t, cloud.routes, "the route is only bound after auth succeeds")
}

func TestEnsure_RetriesTransientErrors(t *testing.T) {
	cloud := newFakeCloud()
	cloud.existsErrs = []error{
		TransientError("head bucket", errors.New("throttled")),
		TransientError("head bucket", errors.New("throttled")),
	}
	p := &Storage{Client: cloud}

	res, err := p.Ensure(context.Background(), newTestConfig())
	require.NoError(t, err, "transient failures within the retry bound must recover")
	assert.False(t, res.AlreadyExisted)
	assert.Equal(t, 3, cloud.existsCalls[KindBucket])
}

func TestEnsure_NoRetryOnPermanentErrors(t *testing.T) {
	cloud := newFakeCloud()
	cloud.existsErrs = []error{
		PermanentError("head bucket", errors.New("access denied")),
	}
	p := &Storage{Client: cloud}

	_, err := p.Ensure(context.Background(), newTestConfig())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, cloud.existsCalls[KindBucket], "permanent errors are never retried")
}

func TestEnsure_TransientExhaustionEscalates(t *testing.T) {
	cloud := newFakeCloud()
	cloud.existsErrs = []error{
		TransientError("head bucket", errors.New("throttled")),
		TransientError("head bucket", errors.New("throttled")),
		TransientError("head bucket", errors.New("throttled")),
	}
	p := &Storage{Client: cloud}

	_, err := p.Ensure(context.Background(), newTestConfig())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, cloud.existsCalls[KindBucket])
}
