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
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cutforest/rcforest/pointstore"
	"k8s.io/klog/v2"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileSnapshotter persists state as one file per forest ID under a root
// directory, written via a temp-file-then-rename so a reader never
// observes a partially written blob.
type FileSnapshotter struct {
	root string
}

// NewFileSnapshotter returns a FileSnapshotter rooted at dir, creating it
// if necessary.
func NewFileSnapshotter(dir string) (*FileSnapshotter, error) {
	if err := mkdirAll(dir); err != nil {
		return nil, fmt.Errorf("persist: creating root %q: %w", dir, err)
	}
	return &FileSnapshotter{root: dir}, nil
}

func (f *FileSnapshotter) path(forestID string) string {
	return filepath.Join(f.root, forestID+".state")
}

// Save atomically overwrites forestID's file with state.
func (f *FileSnapshotter) Save(ctx context.Context, forestID string, state pointstore.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	return overwrite(f.path(forestID), data)
}

// Load reads forestID's persisted state.
func (f *FileSnapshotter) Load(ctx context.Context, forestID string) (pointstore.State, error) {
	data, err := os.ReadFile(f.path(forestID))
	if err != nil {
		return pointstore.State{}, fmt.Errorf("persist: reading %q: %w", forestID, err)
	}
	return decodeState(data)
}

// mkdirAll creates dir and fsyncs dir itself, matching the durability the
// rest of this file's writes assume.
func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(d string) error {
	fd, err := os.Open(d)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", d, err)
	}
	if err := fd.Sync(); err != nil {
		return fmt.Errorf("failed to sync %q: %w", d, err)
	}
	return fd.Close()
}

// overwrite atomically creates/overwrites a file at name containing d, and
// syncs the directory containing it.
func overwrite(name string, d []byte) error {
	dir, _ := filepath.Split(name)
	if err := mkdirAll(dir); err != nil {
		return fmt.Errorf("failed to make directory structure: %w", err)
	}

	tmpName, err := createTemp(dir, d)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("failed to rename temp file to %q: %w", name, err)
	}
	return syncDir(dir)
}

// createTemp writes d to a new file in dir with a randomized name, and
// returns its path.
func createTemp(dir string, d []byte) (string, error) {
	for {
		name := filepath.Join(dir, ".tmp-"+strconv.FormatUint(rand.Uint64(), 16))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(d); err != nil {
			f.Close()
			os.Remove(name)
			return "", err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(name)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(name)
			return "", err
		}
		klog.V(2).Infof("persist: wrote temp file %q", name)
		return name, nil
	}
}
