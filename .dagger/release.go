package main

import (
	"context"
	"fmt"
	"path"

	"dagger/sift/internal/dagger"
)

// bucket holds the credentials of the S3-compatible release bucket.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// withChecksums adds a SHA256SUMS file covering every binary in artifacts.
func (s *Sift) withChecksums(ctx context.Context, artifacts *dagger.Directory) (*dagger.Directory, error) {
	sums, err := dag.Container().
		From("alpine:3.20").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f -name sift | sort | xargs sha256sum"}).
		Stdout(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing checksums: %w", err)
	}

	return artifacts.WithNewFile("SHA256SUMS", sums), nil
}

// upload syncs artifacts to the bucket under each prefix in turn.
func (s *Sift) upload(ctx context.Context, b bucket, artifacts *dagger.Directory, prefixes ...string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}

	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		destination := "s3://" + path.Join(name, prefix)

		_, err := awsCli.
			WithExec([]string{"aws", "s3", "sync", ".", destination, "--endpoint-url", endpoint}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("uploading sift %s: %w", prefix, err)
		}
	}

	return nil
}

// ReleaseLatest builds versioned sift binaries and uploads them, with their
// checksums, under the version and under "latest".
func (s *Sift) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts, err := s.withChecksums(ctx, s.BuildRelease(ctx, version, commit))
	if err != nil {
		return nil, err
	}

	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
	return artifacts, s.upload(ctx, b, artifacts, version, "latest")
}

// Nightly builds sift from the given commit and uploads it under "nightly".
func (s *Sift) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts, err := s.withChecksums(ctx, s.BuildRelease(ctx, "nightly", commit))
	if err != nil {
		return nil, err
	}

	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
	return artifacts, s.upload(ctx, b, artifacts, "nightly")
}
