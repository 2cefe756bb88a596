// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

// Package aws adapts the AWS SDK v2 to the provider boundary the
// provisioners consume. Config loading inherits the shell's AWS setup
// (AWS_PROFILE, shared config, env, IMDS) unless overridden.
package aws
