/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package s3

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/internal/transfer"
)

// partSizeMiB is the multipart download chunk size.
const partSizeMiB = 10

// Provider implements the modelprovider.Provider interface for model
// repositories mirrored under an S3 bucket prefix. Credentials come from
// the default AWS chain (environment, shared config, instance role).
type Provider struct{}

// New creates a new S3 provider instance
func New() *Provider {
	return &Provider{}
}

// Name returns the name of this provider
func (p *Provider) Name() string {
	return "s3"
}

// SupportsURL checks if this provider can handle the given URL
func (p *Provider) SupportsURL(modelURL string) bool {
	return strings.HasPrefix(strings.TrimSpace(modelURL), "s3://")
}

// parseModelURL extracts the bucket and key prefix from an s3:// URL.
func parseModelURL(modelURL string) (bucket, prefix string, err error) {
	modelURL = strings.TrimSpace(modelURL)

	u, err := url.Parse(modelURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URL format, expected s3://bucket/prefix")
	}

	bucket = u.Host
	prefix = strings.Trim(u.Path, "/")
	if prefix != "" {
		prefix += "/"
	}

	return bucket, prefix, nil
}

// ListFiles lists the object keys under the URL's prefix, relative to it.
func (p *Provider) ListFiles(ctx context.Context, modelURL string) ([]string, error) {
	bucket, prefix, err := parseModelURL(modelURL)
	if err != nil {
		return nil, err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(cfg)
	paginator := awss3.NewListObjectsV2Paginator(client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", bucket, prefix, err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			// Skip S3 "folder" markers.
			if strings.HasSuffix(key, "/") {
				continue
			}
			names = append(names, strings.TrimPrefix(key, prefix))
		}
	}

	return names, nil
}

// Fetch downloads the named objects into destDir, staged for later
// promotion.
func (p *Provider) Fetch(ctx context.Context, modelURL string, names []string, destDir string) error {
	bucket, prefix, err := parseModelURL(modelURL)
	if err != nil {
		return err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(cfg)
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = partSizeMiB * 1024 * 1024
	})

	for _, name := range names {
		if err := fetchObject(ctx, downloader, bucket, prefix+name, filepath.Join(destDir, name)); err != nil {
			return err
		}
	}

	return nil
}

// fetchObject downloads one object into dest's staging path.
func fetchObject(ctx context.Context, downloader *manager.Downloader, bucket, key, dest string) error {
	staging := dest + transfer.PartialSuffix
	if err := os.MkdirAll(filepath.Dir(staging), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	file, err := os.Create(staging)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer file.Close()

	numBytes, err := downloader.Download(ctx, file, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}

	logrus.Infof("s3: downloaded object [key: %s, size: %d]", key, numBytes)
	return nil
}

// CheckAuth verifies that AWS credentials are resolvable
func (p *Provider) CheckAuth(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("no AWS credentials available: %w", err)
	}

	return nil
}
