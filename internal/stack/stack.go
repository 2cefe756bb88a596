// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultPath is where the deployment record lives unless overridden
// with --state.
const DefaultPath = "stackup.json"

// ErrConfigMissing is returned by Store.Load when no deployment record
// exists yet. Run `stackup init` to create one.
var ErrConfigMissing = errors.New("deployment config not found")

// Step identifies one provisioning step. Steps run in the fixed order
// returned by Steps; each one publishes an identifier into Config that the
// later steps consume.
type Step string

const (
	StepStorage  Step = "storage"
	StepTable    Step = "table"
	StepFunction Step = "function"
	StepAPI      Step = "api"
)

// Steps returns the provisioning sequence. Storage carries no inputs from
// the others but deploys first so the function code bundle has a home.
func Steps() []Step {
	return []Step{StepStorage, StepTable, StepFunction, StepAPI}
}

// Config is the persisted deployment record for one stack. It is filled
// monotonically: each successful step sets its output fields and the record
// is saved before the next step runs, so a re-run can resume where the last
// one stopped.
type Config struct {
	StackName    string `json:"stack_name"`
	Region       string `json:"region"`
	RoleARN      string `json:"role_arn,omitempty"`
	BucketName   string `json:"storage_bucket_name,omitempty"`
	TableName    string `json:"table_name,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
	CodeKey      string `json:"code_key,omitempty"`
	FunctionARN  string `json:"function_arn,omitempty"`
	APIID        string `json:"api_id,omitempty"`
	APIEndpoint  string `json:"api_endpoint,omitempty"`

	// Auth identifiers, provisioned alongside the API.
	UserPoolID       string `json:"user_pool_id,omitempty"`
	UserPoolClientID string `json:"user_pool_client_id,omitempty"`
	AuthorizerID     string `json:"authorizer_id,omitempty"`
}

// Validate checks the user-supplied fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StackName) == "" {
		return errors.New("stack_name is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	return nil
}

// DeriveBucketName returns the bucket name for this stack, deriving and
// recording it on first use. The bucket gets a random suffix because bucket
// names are global across the provider namespace. Already-set names are
// left alone so a re-run never renames live resources.
func (c *Config) DeriveBucketName() string {
	if c.BucketName == "" {
		c.BucketName = fmt.Sprintf("%s-bucket-%s", c.StackName, uuid.NewString()[:8])
	}
	return c.BucketName
}

// DeriveTableName returns the table name, deriving it on first use.
func (c *Config) DeriveTableName() string {
	if c.TableName == "" {
		c.TableName = c.StackName + "-table"
	}
	return c.TableName
}

// DeriveFunctionName returns the function name and, as a side effect, the
// default object key the packaged code is expected under.
func (c *Config) DeriveFunctionName() string {
	if c.FunctionName == "" {
		c.FunctionName = c.StackName + "-fn"
	}
	if c.CodeKey == "" {
		c.CodeKey = c.FunctionName + ".zip"
	}
	return c.FunctionName
}

// Populated reports whether the identifier a step is responsible for has
// been recorded.
func (c *Config) Populated(s Step) bool {
	switch s {
	case StepStorage:
		return c.BucketName != ""
	case StepTable:
		return c.TableName != ""
	case StepFunction:
		return c.FunctionARN != ""
	case StepAPI:
		return c.APIID != ""
	}
	return false
}

// NextStep returns the first step whose output is not yet recorded, or
// ok=false when the whole sequence has completed. Note that name-only
// fields (bucket, table) count as populated once derived; the provisioners
// still verify provider-side existence on every run.
func (c *Config) NextStep() (Step, bool) {
	for _, s := range Steps() {
		if !c.Populated(s) {
			return s, true
		}
	}
	return "", false
}

// Store persists a Config as JSON on local disk.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Load reads the deployment record. ErrConfigMissing signals that no record
// exists yet, which callers treat differently from a corrupt or unreadable
// one.
func (s *Store) Load() (*Config, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrConfigMissing, s.Path)
		}
		return nil, fmt.Errorf("failed to read deployment config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse deployment config %s: %w", s.Path, err)
	}
	return &cfg, nil
}

// Save writes the record atomically: marshal to a temp file in the same
// directory, then rename over the old one. An interrupted save leaves the
// previous record intact. Serialization is deterministic (fixed field
// order, two-space indent) so records diff cleanly across runs.
func (s *Store) Save(cfg *Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment config: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".stackup-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp config file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace deployment config: %w", err)
	}
	return nil
}
