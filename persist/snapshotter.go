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

// Package persist stores and retrieves a point store's serialized State as
// a single opaque blob keyed by forest ID, against one of several pluggable
// backends. There is no tiling or sharding here: a forest's state is small
// enough to move as one object, unlike the transparency-log tile layout
// this package's backends are adapted from.
package persist

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/cutforest/rcforest/pointstore"
)

// Snapshotter saves and loads a point store's persisted state, keyed by an
// opaque forest identifier chosen by the caller.
type Snapshotter interface {
	Save(ctx context.Context, forestID string, state pointstore.State) error
	Load(ctx context.Context, forestID string) (pointstore.State, error)
}

// encodeState packs a State into the blob a Snapshotter backend stores.
// gob is used rather than a hand-rolled format since nothing outside this
// package needs to read the wire bytes directly.
func encodeState(state pointstore.State) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("persist: encoding state: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeState unpacks a blob previously produced by encodeState.
func decodeState(data []byte) (pointstore.State, error) {
	var state pointstore.State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return pointstore.State{}, fmt.Errorf("persist: decoding state: %w", err)
	}
	return state, nil
}
