// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves default file locations. Only the command line
// entry points call it; library code receives paths explicitly.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirEnv overrides the configuration directory
const ConfigDirEnv = "LEXREDACT_CONFIG_DIR"

// OnnxLibraryEnv names the onnxruntime shared library when the
// configuration does not
const OnnxLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetConfigDir returns the lexredact configuration directory: the
// LEXREDACT_CONFIG_DIR override, else the user config directory
// ($XDG_CONFIG_HOME on Unix, %AppData% on Windows), else ./.lexredact.
func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "lexredact")
	}
	return ".lexredact"
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetListsFile returns the path to the allow/deny lists file
func GetListsFile() string {
	return filepath.Join(GetConfigDir(), "lists.yaml")
}

// GetStoreFile returns the path to the learned-entity database
func GetStoreFile() string {
	return filepath.Join(GetConfigDir(), "learned.db")
}

// GetOnnxLibrary returns the onnxruntime shared library named by
// ONNXRUNTIME_SHARED_LIBRARY_PATH, or "" when it is unset
func GetOnnxLibrary() string {
	return strings.TrimSpace(os.Getenv(OnnxLibraryEnv))
}

// OutputBase returns the output path prefix for input inside dir: the input
// base name without its extension. An empty dir selects the input's own
// directory.
func OutputBase(input, dir string) string {
	name := filepath.Base(input)
	name = name[:len(name)-len(filepath.Ext(name))]
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}
