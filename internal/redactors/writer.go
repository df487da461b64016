// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lexredact/internal/document"
	"lexredact/internal/observability"
)

// OutputPaths lists the files written for one document
type OutputPaths struct {
	Document string `json:"document"`
	Text     string `json:"text"`
	Audit    string `json:"audit"`
	Mapping  string `json:"mapping,omitempty"`
}

// All returns the non-empty paths in write order
func (op OutputPaths) All() []string {
	var out []string
	for _, p := range []string{op.Document, op.Text, op.Audit, op.Mapping} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OutputWriter writes the redaction artifacts. Every file is first written
// to a temporary sibling; the renames happen only once all of them are
// complete, so a failure never leaves a partial set behind.
type OutputWriter struct {
	observer *observability.StandardObserver
}

// NewOutputWriter creates an output writer
func NewOutputWriter(observer *observability.StandardObserver) *OutputWriter {
	return &OutputWriter{observer: observer}
}

// MappingOutput is the rendered mapping table and its file extension
type MappingOutput struct {
	Content   []byte
	Extension string
}

// Write stores result under base (a path prefix without extension). A nil
// mapping skips the mapping file.
func (ow *OutputWriter) Write(base string, result *ExportResult, mapping *MappingOutput) (*OutputPaths, error) {
	finishTiming := ow.observer.StartTiming("output_writer", "write", base)

	if err := ValidatePath(base); err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, NewRedactionError(ErrorFileSystem, "invalid output path", base, "output_writer", err)
	}
	if err := EnsureDirectoryExists(base); err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, NewRedactionError(ErrorFileSystem, "cannot create output directory", base, "output_writer", err)
	}

	paths := &OutputPaths{
		Document: base + ".redacted.json",
		Text:     base + ".redacted.txt",
		Audit:    base + ".audit.json",
	}

	if err := result.Audit.Validate(); err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, NewRedactionError(ErrorValidation, "inconsistent audit log", base, "output_writer", err)
	}

	var docBuf bytes.Buffer
	if err := document.WriteJSON(&docBuf, result.Document); err != nil {
		finishTiming(false, nil)
		return nil, NewRedactionError(ErrorFileSystem, "encoding redacted document", base, "output_writer", err)
	}
	auditJSON, err := result.Audit.ToJSON()
	if err != nil {
		finishTiming(false, nil)
		return nil, NewRedactionError(ErrorFileSystem, "encoding audit log", base, "output_writer", err)
	}

	files := []pendingFile{
		{path: paths.Document, content: docBuf.Bytes()},
		{path: paths.Text, content: []byte(result.Document.PlainText())},
		{path: paths.Audit, content: auditJSON},
	}
	if mapping != nil {
		ext := "." + strings.TrimPrefix(mapping.Extension, ".")
		paths.Mapping = base + ".mapping" + ext
		files = append(files, pendingFile{path: paths.Mapping, content: mapping.Content})
	}

	if err := commitFiles(files); err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, NewRedactionError(ErrorFileSystem, "writing outputs", base, "output_writer", err)
	}

	finishTiming(true, map[string]interface{}{"files": len(files)})
	return paths, nil
}

type pendingFile struct {
	path    string
	content []byte
	tmp     string
}

// commitFiles writes every file to a temporary name, then renames them all.
// On failure temporaries and already renamed files are removed.
func commitFiles(files []pendingFile) (err error) {
	var renamed []string
	defer func() {
		if err != nil {
			for _, f := range files {
				if f.tmp != "" {
					_ = os.Remove(f.tmp)
				}
			}
			for _, p := range renamed {
				_ = os.Remove(p)
			}
		}
	}()

	for i := range files {
		tmp, werr := writeTemp(files[i].path, bytes.NewReader(files[i].content))
		if werr != nil {
			return werr
		}
		files[i].tmp = tmp
	}
	for i := range files {
		if err = os.Rename(files[i].tmp, files[i].path); err != nil {
			return fmt.Errorf("failed to rename %s: %w", files[i].tmp, err)
		}
		files[i].tmp = ""
		renamed = append(renamed, files[i].path)
	}
	return nil
}

func writeTemp(path string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	name := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	// Ensure all data is written to disk
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(name, 0600); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return name, nil
}

// EnsureDirectoryExists creates the parent directory of path if needed
func EnsureDirectoryExists(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", dir)
		}
		return nil
	}
	// owner only
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ValidatePath rejects empty paths, traversal sequences and system directories
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path contains invalid traversal sequences: %s", path)
		}
	}
	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		systemDirs := []string{"/etc", "/sys", "/proc", "/dev", "C:\\Windows", "C:\\System32"}
		for _, sysDir := range systemDirs {
			if strings.HasPrefix(strings.ToLower(cleanPath), strings.ToLower(sysDir)) {
				return fmt.Errorf("path references system directory: %s", path)
			}
		}
	}
	return nil
}
