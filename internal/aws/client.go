// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	apitypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/stackup-dev/stackup/internal/provision"
)

const tableWaitTimeout = 2 * time.Minute

// Client implements provision.CloudClient over the AWS SDK v2 service
// clients.
type Client struct {
	region  string
	s3      *s3.Client
	ddb     *dynamodb.Client
	lambda  *lambda.Client
	apigw   *apigatewayv2.Client
	cognito *cognitoidentityprovider.Client
}

func NewClient(cfg awsv2.Config) *Client {
	return &Client{
		region:  cfg.Region,
		s3:      s3.NewFromConfig(cfg),
		ddb:     dynamodb.NewFromConfig(cfg),
		lambda:  lambda.NewFromConfig(cfg),
		apigw:   apigatewayv2.NewFromConfig(cfg),
		cognito: cognitoidentityprovider.NewFromConfig(cfg),
	}
}

// PutObject forwards to the S3 client so artifact uploads (function code
// bundles) can share this client.
func (c *Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return c.s3.PutObject(ctx, params, optFns...)
}

func (c *Client) ResourceExists(ctx context.Context, kind provision.ResourceKind, name string) (string, bool, error) {
	switch kind {
	case provision.KindBucket:
		_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &name})
		if err != nil {
			var nf *s3types.NotFound
			if errors.As(err, &nf) {
				return "", false, nil
			}
			return "", false, classify("head bucket "+name, err)
		}
		return name, true, nil

	case provision.KindTable:
		out, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &name})
		if err != nil {
			var nf *ddbtypes.ResourceNotFoundException
			if errors.As(err, &nf) {
				return "", false, nil
			}
			return "", false, classify("describe table "+name, err)
		}
		return awsv2.ToString(out.Table.TableName), true, nil

	case provision.KindFunction:
		out, err := c.lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: &name})
		if err != nil {
			var nf *lambdatypes.ResourceNotFoundException
			if errors.As(err, &nf) {
				return "", false, nil
			}
			return "", false, classify("get function "+name, err)
		}
		return awsv2.ToString(out.Configuration.FunctionArn), true, nil

	case provision.KindAPI:
		return c.findAPI(ctx, name)
	}

	return "", false, provision.PermanentError("resource exists", fmt.Errorf("unknown resource kind %q", kind))
}

// findAPI pages through the account's APIs looking for a name match.
func (c *Client) findAPI(ctx context.Context, name string) (string, bool, error) {
	var next *string
	for {
		out, err := c.apigw.GetApis(ctx, &apigatewayv2.GetApisInput{NextToken: next})
		if err != nil {
			return "", false, classify("list apis", err)
		}
		for _, item := range out.Items {
			if awsv2.ToString(item.Name) == name {
				return awsv2.ToString(item.ApiId), true, nil
			}
		}
		if out.NextToken == nil {
			return "", false, nil
		}
		next = out.NextToken
	}
}

func (c *Client) CreateResource(ctx context.Context, spec provision.ResourceSpec) (string, error) {
	switch spec.Kind {
	case provision.KindBucket:
		input := &s3.CreateBucketInput{Bucket: &spec.Name}
		// us-east-1 rejects an explicit location constraint.
		if c.region != "" && c.region != "us-east-1" {
			input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(c.region),
			}
		}
		if _, err := c.s3.CreateBucket(ctx, input); err != nil {
			return "", classify("create bucket "+spec.Name, err)
		}
		return spec.Name, nil

	case provision.KindTable:
		_, err := c.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: &spec.Name,
			AttributeDefinitions: []ddbtypes.AttributeDefinition{{
				AttributeName: &spec.HashKey,
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			}},
			KeySchema: []ddbtypes.KeySchemaElement{{
				AttributeName: &spec.HashKey,
				KeyType:       ddbtypes.KeyTypeHash,
			}},
			BillingMode: ddbtypes.BillingModePayPerRequest,
		})
		if err != nil {
			return "", classify("create table "+spec.Name, err)
		}

		waiter := dynamodb.NewTableExistsWaiter(c.ddb)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: &spec.Name}, tableWaitTimeout); err != nil {
			return "", classify("wait for table "+spec.Name, err)
		}
		return spec.Name, nil

	case provision.KindAPI:
		out, err := c.apigw.CreateApi(ctx, &apigatewayv2.CreateApiInput{
			Name:         &spec.Name,
			ProtocolType: apitypes.ProtocolTypeHttp,
			Description:  &spec.Description,
		})
		if err != nil {
			return "", classify("create api "+spec.Name, err)
		}
		return awsv2.ToString(out.ApiId), nil
	}

	return "", provision.PermanentError("create resource", fmt.Errorf("unknown resource kind %q", spec.Kind))
}

func (c *Client) CreateFunction(ctx context.Context, spec provision.FunctionSpec) (string, error) {
	out, err := c.lambda.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: &spec.Name,
		Role:         &spec.Role,
		Handler:      &spec.Handler,
		Runtime:      lambdatypes.Runtime(spec.Runtime),
		Timeout:      awsv2.Int32(int32(spec.Timeout.Seconds())),
		Code: &lambdatypes.FunctionCode{
			S3Bucket: &spec.CodeBucket,
			S3Key:    &spec.CodeKey,
		},
		Environment: &lambdatypes.Environment{Variables: spec.Env},
	})
	if err != nil {
		return "", classify("create function "+spec.Name, err)
	}
	return awsv2.ToString(out.FunctionArn), nil
}

// EnsureAuth provisions the user directory guarding the API: a user pool
// with email sign-in, an app client without a secret, and a JWT authorizer
// on the API trusting the pool as issuer and the client as audience. Every
// piece is searched for by name first, so re-running reuses what exists.
func (c *Client) EnsureAuth(ctx context.Context, apiID string, spec provision.AuthSpec) (provision.AuthResult, error) {
	poolID, err := c.ensureUserPool(ctx, spec.PoolName)
	if err != nil {
		return provision.AuthResult{}, err
	}

	clientID, err := c.ensureUserPoolClient(ctx, poolID, spec.ClientName)
	if err != nil {
		return provision.AuthResult{}, err
	}

	authorizerID, err := c.ensureAuthorizer(ctx, apiID, spec.AuthorizerName, poolID, clientID)
	if err != nil {
		return provision.AuthResult{}, err
	}

	return provision.AuthResult{
		UserPoolID:   poolID,
		ClientID:     clientID,
		AuthorizerID: authorizerID,
	}, nil
}

func (c *Client) ensureUserPool(ctx context.Context, name string) (string, error) {
	var next *string
	for {
		out, err := c.cognito.ListUserPools(ctx, &cognitoidentityprovider.ListUserPoolsInput{
			MaxResults: awsv2.Int32(60),
			NextToken:  next,
		})
		if err != nil {
			return "", classify("list user pools", err)
		}
		for _, pool := range out.UserPools {
			if awsv2.ToString(pool.Name) == name {
				log.Debugf("user pool %s already exists", name)
				return awsv2.ToString(pool.Id), nil
			}
		}
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	log.Infof("creating user pool %s", name)
	emailAttr := "email"
	out, err := c.cognito.CreateUserPool(ctx, &cognitoidentityprovider.CreateUserPoolInput{
		PoolName: &name,
		Schema: []cognitotypes.SchemaAttributeType{{
			Name:              &emailAttr,
			AttributeDataType: cognitotypes.AttributeDataTypeString,
			Required:          awsv2.Bool(true),
			Mutable:           awsv2.Bool(true),
		}},
		Policies: &cognitotypes.UserPoolPolicyType{
			PasswordPolicy: &cognitotypes.PasswordPolicyType{
				MinimumLength:    awsv2.Int32(8),
				RequireUppercase: true,
				RequireNumbers:   true,
				RequireSymbols:   false,
			},
		},
		AutoVerifiedAttributes: []cognitotypes.VerifiedAttributeType{cognitotypes.VerifiedAttributeTypeEmail},
		AliasAttributes:        []cognitotypes.AliasAttributeType{cognitotypes.AliasAttributeTypeEmail},
	})
	if err != nil {
		return "", classify("create user pool "+name, err)
	}
	return awsv2.ToString(out.UserPool.Id), nil
}

func (c *Client) ensureUserPoolClient(ctx context.Context, poolID, name string) (string, error) {
	var next *string
	for {
		out, err := c.cognito.ListUserPoolClients(ctx, &cognitoidentityprovider.ListUserPoolClientsInput{
			UserPoolId: &poolID,
			MaxResults: awsv2.Int32(60),
			NextToken:  next,
		})
		if err != nil {
			return "", classify("list user pool clients", err)
		}
		for _, client := range out.UserPoolClients {
			if awsv2.ToString(client.ClientName) == name {
				log.Debugf("user pool client %s already exists", name)
				return awsv2.ToString(client.ClientId), nil
			}
		}
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	log.Infof("creating user pool client %s", name)
	out, err := c.cognito.CreateUserPoolClient(ctx, &cognitoidentityprovider.CreateUserPoolClientInput{
		UserPoolId:           &poolID,
		ClientName:           &name,
		GenerateSecret:       false,
		RefreshTokenValidity: 30,
		AccessTokenValidity:  awsv2.Int32(60),
		IdTokenValidity:      awsv2.Int32(60),
		TokenValidityUnits: &cognitotypes.TokenValidityUnitsType{
			AccessToken:  cognitotypes.TimeUnitsTypeMinutes,
			IdToken:      cognitotypes.TimeUnitsTypeMinutes,
			RefreshToken: cognitotypes.TimeUnitsTypeDays,
		},
		ExplicitAuthFlows: []cognitotypes.ExplicitAuthFlowsType{
			cognitotypes.ExplicitAuthFlowsTypeAllowUserAuth,
			cognitotypes.ExplicitAuthFlowsTypeAllowUserSrpAuth,
			cognitotypes.ExplicitAuthFlowsTypeAllowRefreshTokenAuth,
		},
		PreventUserExistenceErrors: cognitotypes.PreventUserExistenceErrorTypesEnabled,
	})
	if err != nil {
		return "", classify("create user pool client "+name, err)
	}
	return awsv2.ToString(out.UserPoolClient.ClientId), nil
}

func (c *Client) ensureAuthorizer(ctx context.Context, apiID, name, poolID, clientID string) (string, error) {
	var next *string
	for {
		out, err := c.apigw.GetAuthorizers(ctx, &apigatewayv2.GetAuthorizersInput{
			ApiId:     &apiID,
			NextToken: next,
		})
		if err != nil {
			return "", classify("list authorizers", err)
		}
		for _, item := range out.Items {
			if awsv2.ToString(item.Name) == name {
				log.Debugf("authorizer %s already exists", name)
				return awsv2.ToString(item.AuthorizerId), nil
			}
		}
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	log.Infof("creating authorizer %s", name)
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.region, poolID)
	out, err := c.apigw.CreateAuthorizer(ctx, &apigatewayv2.CreateAuthorizerInput{
		ApiId:          &apiID,
		Name:           &name,
		AuthorizerType: apitypes.AuthorizerTypeJwt,
		IdentitySource: []string{"$request.header.Authorization"},
		JwtConfiguration: &apitypes.JWTConfiguration{
			Issuer:   &issuer,
			Audience: []string{clientID},
		},
	})
	if err != nil {
		return "", classify("create authorizer "+name, err)
	}
	return awsv2.ToString(out.AuthorizerId), nil
}

// CreateRoute wires apiID -> function: a proxy integration, the route
// itself, and the invoke permission. Each part tolerates already existing
// so the whole call is re-runnable. A non-empty authorizerID guards the
// route with JWT authorization.
func (c *Client) CreateRoute(ctx context.Context, apiID, routeKey, target, authorizerID string) error {
	integrationID, err := c.ensureIntegration(ctx, apiID, target)
	if err != nil {
		return err
	}

	routeTarget := "integrations/" + integrationID
	input := &apigatewayv2.CreateRouteInput{
		ApiId:    &apiID,
		RouteKey: &routeKey,
		Target:   &routeTarget,
	}
	if authorizerID != "" {
		input.AuthorizationType = apitypes.AuthorizationTypeJwt
		input.AuthorizerId = &authorizerID
	}
	_, err = c.apigw.CreateRoute(ctx, input)
	if err != nil {
		if !isConflict(err) {
			return classify("create route "+routeKey, err)
		}
		// Route exists from an earlier run; re-bind it so target and
		// authorizer reflect the current config.
		if err := c.rebindRoute(ctx, apiID, routeKey, routeTarget, authorizerID); err != nil {
			return err
		}
	}

	statementID := "stackup-apigw-invoke"
	principal := "apigateway.amazonaws.com"
	action := "lambda:InvokeFunction"
	_, err = c.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: &target,
		StatementId:  &statementID,
		Action:       &action,
		Principal:    &principal,
	})
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		if errors.As(err, &conflict) {
			log.Debugf("invoke permission already granted on %s", target)
			return nil
		}
		return classify("add invoke permission", err)
	}
	return nil
}

func (c *Client) ensureIntegration(ctx context.Context, apiID, target string) (string, error) {
	existing, err := c.apigw.GetIntegrations(ctx, &apigatewayv2.GetIntegrationsInput{ApiId: &apiID})
	if err != nil {
		return "", classify("list integrations", err)
	}
	for _, item := range existing.Items {
		if awsv2.ToString(item.IntegrationUri) == target {
			return awsv2.ToString(item.IntegrationId), nil
		}
	}

	payloadVersion := "2.0"
	out, err := c.apigw.CreateIntegration(ctx, &apigatewayv2.CreateIntegrationInput{
		ApiId:                &apiID,
		IntegrationType:      apitypes.IntegrationTypeAwsProxy,
		IntegrationUri:       &target,
		PayloadFormatVersion: &payloadVersion,
	})
	if err != nil {
		return "", classify("create integration", err)
	}
	return awsv2.ToString(out.IntegrationId), nil
}

// rebindRoute updates an existing route in place, used when CreateRoute
// hits a conflict with a route left by an earlier run.
func (c *Client) rebindRoute(ctx context.Context, apiID, routeKey, routeTarget, authorizerID string) error {
	var next *string
	for {
		out, err := c.apigw.GetRoutes(ctx, &apigatewayv2.GetRoutesInput{
			ApiId:     &apiID,
			NextToken: next,
		})
		if err != nil {
			return classify("list routes", err)
		}
		for _, item := range out.Items {
			if awsv2.ToString(item.RouteKey) != routeKey {
				continue
			}
			input := &apigatewayv2.UpdateRouteInput{
				ApiId:   &apiID,
				RouteId: item.RouteId,
				Target:  &routeTarget,
			}
			if authorizerID != "" {
				input.AuthorizationType = apitypes.AuthorizationTypeJwt
				input.AuthorizerId = &authorizerID
			}
			if _, err := c.apigw.UpdateRoute(ctx, input); err != nil {
				return classify("update route "+routeKey, err)
			}
			return nil
		}
		if out.NextToken == nil {
			return classify("update route "+routeKey, fmt.Errorf("route %q not found", routeKey))
		}
		next = out.NextToken
	}
}

func isConflict(err error) bool {
	var conflict *apitypes.ConflictException
	return errors.As(err, &conflict)
}

// classify sorts a provider failure into the transient/permanent taxonomy.
// Throttling, timeouts, and server faults are retryable; everything with a
// client fault code (bad name, permissions, quota) is not. Transport-level
// failures with no API error code are treated as transient.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling", "TooManyRequestsException",
			"RequestTimeout", "RequestTimeoutException",
			"ServiceUnavailable", "ServiceUnavailableException",
			"InternalError", "InternalFailure", "InternalServerError":
			return provision.TransientError(op, err)
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return provision.TransientError(op, err)
		}
		return provision.PermanentError(op, err)
	}
	return provision.TransientError(op, err)
}
