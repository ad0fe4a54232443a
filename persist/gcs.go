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
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/cutforest/rcforest/pointstore"
)

// GCSSnapshotter persists state as one object per forest ID in a GCS
// bucket, keyed by object name "<prefix><forestID>.state".
type GCSSnapshotter struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSSnapshotter returns a GCSSnapshotter writing into bucket, with
// object names prefixed by prefix (which may be empty).
func NewGCSSnapshotter(ctx context.Context, bucket, prefix string) (*GCSSnapshotter, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("persist: creating GCS client: %w", err)
	}
	return &GCSSnapshotter{client: c, bucket: bucket, prefix: prefix}, nil
}

func (g *GCSSnapshotter) object(forestID string) string {
	return g.prefix + forestID + ".state"
}

// Save overwrites forestID's object with state.
func (g *GCSSnapshotter) Save(ctx context.Context, forestID string, state pointstore.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	w := g.client.Bucket(g.bucket).Object(g.object(forestID)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("persist: writing object %q: %w", g.object(forestID), err)
	}
	return w.Close()
}

// Load reads forestID's persisted state.
func (g *GCSSnapshotter) Load(ctx context.Context, forestID string) (pointstore.State, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.object(forestID)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return pointstore.State{}, fmt.Errorf("persist: object %q: %w", g.object(forestID), err)
		}
		return pointstore.State{}, fmt.Errorf("persist: opening reader for %q: %w", g.object(forestID), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return pointstore.State{}, fmt.Errorf("persist: reading object %q: %w", g.object(forestID), err)
	}
	return decodeState(data)
}
