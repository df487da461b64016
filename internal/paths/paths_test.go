// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
	assert.Equal(t, filepath.Join(dir, "lists.yaml"), GetListsFile())
	assert.Equal(t, filepath.Join(dir, "learned.db"), GetStoreFile())
}

func TestOnnxLibraryFromEnvironment(t *testing.T) {
	t.Setenv(OnnxLibraryEnv, "")
	assert.Empty(t, GetOnnxLibrary())

	t.Setenv(OnnxLibraryEnv, " /opt/ort/libonnxruntime.so\n")
	assert.Equal(t, "/opt/ort/libonnxruntime.so", GetOnnxLibrary())
}

func TestOutputBase(t *testing.T) {
	tests := []struct {
		input, dir, want string
	}{
		{filepath.Join("in", "atto.pdf"), "out", filepath.Join("out", "atto")},
		{filepath.Join("in", "atto.tar.json"), "", filepath.Join("in", "atto.tar")},
		{"noext", "", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputBase(tt.input, tt.dir))
		})
	}
}
