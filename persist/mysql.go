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
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cutforest/rcforest/pointstore"
	"k8s.io/klog/v2"
)

const (
	selectStateByForestIDSQL = "SELECT `state` FROM `ForestState` WHERE `forest_id` = ?"
	replaceStateSQL          = "REPLACE INTO `ForestState` (`forest_id`, `state`) VALUES (?, ?)"
)

// MySQLSnapshotter persists state as one row per forest ID in a
// ForestState table:
//
//	CREATE TABLE ForestState (
//	    forest_id VARCHAR(255) NOT NULL PRIMARY KEY,
//	    state     LONGBLOB NOT NULL
//	);
type MySQLSnapshotter struct {
	db *sql.DB
}

// NewMySQLSnapshotter wraps an already-open db. The caller owns db's
// lifecycle and schema migration.
func NewMySQLSnapshotter(ctx context.Context, db *sql.DB) (*MySQLSnapshotter, error) {
	if err := db.PingContext(ctx); err != nil {
		klog.Errorf("persist: failed to ping database: %v", err)
		return nil, fmt.Errorf("persist: pinging database: %w", err)
	}
	return &MySQLSnapshotter{db: db}, nil
}

// Save replaces forestID's row with state.
func (m *MySQLSnapshotter) Save(ctx context.Context, forestID string, state pointstore.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, replaceStateSQL, forestID, data); err != nil {
		return fmt.Errorf("persist: writing state for forest %q: %w", forestID, err)
	}
	return nil
}

// Load reads forestID's persisted state.
func (m *MySQLSnapshotter) Load(ctx context.Context, forestID string) (pointstore.State, error) {
	var data []byte
	row := m.db.QueryRowContext(ctx, selectStateByForestIDSQL, forestID)
	if err := row.Scan(&data); err != nil {
		return pointstore.State{}, fmt.Errorf("persist: reading state for forest %q: %w", forestID, err)
	}
	return decodeState(data)
}
