// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/stackup-dev/stackup/internal/provision"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{
			name:          "throttling is transient",
			err:           &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient},
			wantTransient: true,
		},
		{
			name:          "too many requests is transient",
			err:           &smithy.GenericAPIError{Code: "TooManyRequestsException", Fault: smithy.FaultClient},
			wantTransient: true,
		},
		{
			name:          "server fault is transient",
			err:           &smithy.GenericAPIError{Code: "SomethingBroke", Fault: smithy.FaultServer},
			wantTransient: true,
		},
		{
			name:          "access denied is permanent",
			err:           &smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient},
			wantTransient: false,
		},
		{
			name:          "invalid name is permanent",
			err:           &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient},
			wantTransient: false,
		},
		{
			name:          "wrapped api error is still classified",
			err:           fmt.Errorf("call failed: %w", &smithy.GenericAPIError{Code: "Throttling"}),
			wantTransient: true,
		},
		{
			name:          "transport error without api code is transient",
			err:           errors.New("connection reset by peer"),
			wantTransient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			assert.Equal(t, tt.wantTransient, provision.IsTransient(got))

			var pe *provision.ProviderError
			assert.ErrorAs(t, got, &pe)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
