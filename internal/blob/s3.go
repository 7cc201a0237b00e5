package blob

import (
	"context"

	infraS3 "platedesign/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = infraS3.Config

// S3ConfigFromEnv reads the PLATEDESIGN_BLOB_S3_* variables.
func S3ConfigFromEnv() S3Config { return infraS3.ConfigFromEnv() }

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 store wired to an in-process fake endpoint.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
