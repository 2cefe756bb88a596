// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/stackup-dev/stackup/internal/stack"
)

// defaultRouteKey catches every request and forwards it to the function.
const defaultRouteKey = "ANY /{proxy+}"

// API provisions the HTTP front-end: the API itself, the user directory
// guarding it (user pool, app client, authorizer), and the catch-all
// route to the function. It depends on the function identifier.
type API struct {
	Client CloudClient
}

func (p *API) Step() stack.Step {
	return stack.StepAPI
}

func (p *API) Ensure(ctx context.Context, cfg *stack.Config) (Result, error) {
	if cfg.FunctionARN == "" {
		return Result{}, dependencyError(string(p.Step()), "function_arn")
	}

	name := cfg.StackName + "-api"

	var res Result
	var auth AuthResult
	err := callWithRetry(ctx, "ensure api "+name, func() error {
		id, ok, err := p.Client.ResourceExists(ctx, KindAPI, name)
		if err != nil {
			return err
		}
		if !ok {
			log.Infof("creating api %s", name)
			id, err = p.Client.CreateResource(ctx, ResourceSpec{
				Kind:        KindAPI,
				Name:        name,
				Description: "HTTP front-end for stack " + cfg.StackName,
			})
			if err != nil {
				return err
			}
		} else {
			log.Infof("api %s already exists", name)
		}

		auth, err = p.Client.EnsureAuth(ctx, id, AuthSpec{
			PoolName:       cfg.StackName + "-users",
			ClientName:     cfg.StackName + "-client",
			AuthorizerName: cfg.StackName + "-auth",
		})
		if err != nil {
			return err
		}

		// The route is re-bound on every run; binding an existing route is
		// a no-op at the provider boundary.
		if err := p.Client.CreateRoute(ctx, id, defaultRouteKey, cfg.FunctionARN, auth.AuthorizerID); err != nil {
			return err
		}

		res = Result{Kind: KindAPI, Identifier: id, AlreadyExisted: ok}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	cfg.APIID = res.Identifier
	cfg.APIEndpoint = endpointURL(res.Identifier, cfg.Region)
	cfg.UserPoolID = auth.UserPoolID
	cfg.UserPoolClientID = auth.ClientID
	cfg.AuthorizerID = auth.AuthorizerID
	return res, nil
}

// endpointURL derives the public endpoint from the API identifier. Vendors
// whose endpoints are not derivable should record the endpoint as the
// identifier instead.
func endpointURL(apiID, region string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com", apiID, region)
}
