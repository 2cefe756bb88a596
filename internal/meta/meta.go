// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"

	"github.com/stackup-dev/stackup/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args        []string
	Config      config.Type
	Context     context.Context
	StartingDir string
}
