// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	assert.True(t, strings.HasPrefix(Info(), "lexredact "+Version))
	assert.Equal(t, Version, Short())
	assert.Contains(t, Info(), "platform: "+Platform)
	assert.NotEmpty(t, GitCommit)
}
