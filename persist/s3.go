// Copyright 2024 The RCForest Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cutforest/rcforest/pointstore"
)

const stateContentType = "application/octet-stream"

// S3Config holds the AWS configuration needed to reach the bucket an
// S3Snapshotter reads and writes.
type S3Config struct {
	// SDKConfig is an optional AWS config to use when configuring the S3
	// client, e.g. to target a non-AWS S3-compatible service. If nil,
	// config.LoadDefaultConfig is used.
	SDKConfig *aws.Config
	// Options optionally customizes the S3 client further; may be nil.
	Options func(*s3.Options)
	// Bucket is the name of the S3 bucket to use.
	Bucket string
}

// S3Snapshotter persists state as one object per forest ID in an S3
// bucket, keyed by object key "<forestID>.state".
type S3Snapshotter struct {
	client *s3.Client
	bucket string
}

// NewS3Snapshotter returns an S3Snapshotter for cfg.
func NewS3Snapshotter(ctx context.Context, cfg S3Config) (*S3Snapshotter, error) {
	if cfg.Options == nil {
		// s3.NewFromConfig invokes every optFns entry unconditionally; a nil
		// func value there would panic, so default it regardless of which
		// branch below sets SDKConfig.
		cfg.Options = func(*s3.Options) {}
	}
	if cfg.SDKConfig == nil {
		sdkConfig, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("persist: loading default AWS configuration: %w", err)
		}
		cfg.SDKConfig = &sdkConfig
	}
	return &S3Snapshotter{
		client: s3.NewFromConfig(*cfg.SDKConfig, cfg.Options),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Snapshotter) key(forestID string) string {
	return forestID + ".state"
}

// Save overwrites forestID's object with state.
func (s *S3Snapshotter) Save(ctx context.Context, forestID string, state pointstore.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	put := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(forestID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(stateContentType),
	}
	if _, err := s.client.PutObject(ctx, put); err != nil {
		return fmt.Errorf("persist: writing object %q to bucket %q: %w", s.key(forestID), s.bucket, err)
	}
	return nil
}

// Load reads forestID's persisted state.
func (s *S3Snapshotter) Load(ctx context.Context, forestID string) (pointstore.State, error) {
	r, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(forestID)),
	})
	if err != nil {
		return pointstore.State{}, fmt.Errorf("persist: reading object %q from bucket %q: %w", s.key(forestID), s.bucket, err)
	}
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return pointstore.State{}, fmt.Errorf("persist: reading body of %q: %w", s.key(forestID), err)
	}
	return decodeState(data)
}
