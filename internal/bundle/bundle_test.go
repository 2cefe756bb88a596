// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func entryNames(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(b)
	}
	return entries
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lambda_handler.py", "def lambda_handler(event, context): ...")
	writeFile(t, dir, "lib/helpers.py", "VALUE = 1")
	writeFile(t, dir, "stale.zip", "not included")

	data, err := Archive(dir)
	require.NoError(t, err)

	entries := entryNames(t, data)
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "lambda_handler.py")
	assert.Equal(t, "VALUE = 1", entries["lib/helpers.py"])
	assert.NotContains(t, entries, "stale.zip", "earlier bundles must not nest")
}

func TestArchive_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.py", "x")

	_, err := Archive(filepath.Join(dir, "file.py"))
	assert.Error(t, err)

	_, err = Archive(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

type fakePutter struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = *params.Bucket
	f.key = *params.Key
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestPush(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lambda_handler.py", "def lambda_handler(event, context): ...")

	putter := &fakePutter{}
	require.NoError(t, Push(context.Background(), putter, dir, "demo-bucket", "demo-fn.zip"))

	assert.Equal(t, "demo-bucket", putter.bucket)
	assert.Equal(t, "demo-fn.zip", putter.key)

	entries := entryNames(t, putter.body)
	assert.Contains(t, entries, "lambda_handler.py")
}
