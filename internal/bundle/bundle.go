// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

// Package bundle packages function source code and uploads it to the
// stack's storage bucket, where the function provisioner references it.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
)

// objectPutter is the slice of the S3 client Upload needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive zips the contents of srcDir, preserving relative paths. Existing
// .zip files are skipped so re-bundling never nests an earlier bundle.
func Archive(srcDir string) ([]byte, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", srcDir)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".zip") {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to archive %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Upload puts the archived bundle at bucket/key.
func Upload(ctx context.Context, client objectPutter, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload bundle to %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Push archives srcDir and uploads it in one step.
func Push(ctx context.Context, client objectPutter, srcDir, bucket, key string) error {
	data, err := Archive(srcDir)
	if err != nil {
		return err
	}
	log.Infof("uploading bundle %s (%s) to %s/%s", srcDir, humanize.Bytes(uint64(len(data))), bucket, key)
	return Upload(ctx, client, bucket, key, data)
}
