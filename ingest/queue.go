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

// Package ingest provides an optional batching front-end over a forest
// executor's synchronous Update, for callers with many concurrent
// producers that would otherwise serialize directly against the
// executor's single sequence-index counter.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/forest"
	buffer "github.com/globocom/go-buffer"
)

// Default batching parameters, used when NewQueue's caller passes zero
// values.
const (
	DefaultBatchMaxSize = 256
	DefaultBatchMaxAge  = 10 * time.Millisecond
)

// Future resolves to the UpdateResult (or error) assigned to a
// previously-submitted point, once its batch has been flushed.
type Future func() (forest.UpdateResult, error)

// Queue batches concurrent Submit calls and drains each batch, in
// submission order, into sequential calls against the wrapped executor
// on a single worker goroutine — preserving the executor's monotonic
// sequence-index guarantee even though producers submit concurrently.
type Queue struct {
	ex  *forest.Executor
	buf *buffer.Buffer

	work chan []*queueItem
	done <-chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a Queue draining into ex. A batch flushes once it
// holds maxSize items or its oldest item has waited maxAge; zero values
// fall back to DefaultBatchMaxSize/DefaultBatchMaxAge.
func NewQueue(ctx context.Context, ex *forest.Executor, maxAge time.Duration, maxSize uint) *Queue {
	if maxAge <= 0 {
		maxAge = DefaultBatchMaxAge
	}
	if maxSize == 0 {
		maxSize = DefaultBatchMaxSize
	}

	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		ex:   ex,
		work: make(chan []*queueItem, 1),
		done: ctx.Done(),
	}

	toWork := func(items []interface{}) {
		entries := make([]*queueItem, len(items))
		for i, t := range items {
			entries[i] = t.(*queueItem)
		}
		q.work <- entries
	}

	q.buf = buffer.New(
		buffer.WithSize(maxSize),
		buffer.WithFlushInterval(maxAge),
		buffer.WithFlusher(buffer.FlusherFunc(toWork)),
	)

	go func(ctx context.Context) {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case entries, ok := <-q.work:
				if !ok {
					return
				}
				q.doFlush(entries)
			}
		}
	}(ctx)
	return q
}

// Submit enqueues point and returns a future for the UpdateResult its
// eventual flush produces.
func (q *Queue) Submit(ctx context.Context, point rcforest.Point) Future {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return func() (forest.UpdateResult, error) {
			return forest.UpdateResult{}, errors.New("ingest: Submit called on closed queue")
		}
	}

	item := newQueueItem(point)
	if err := q.buf.Push(item); err != nil {
		item.notify(forest.UpdateResult{}, err)
	}
	return item.f
}

// Close flushes any pending batch and waits for the worker goroutine to
// drain it before returning.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true

	if err := q.buf.Flush(); err != nil {
		return err
	}
	if err := q.buf.Close(); err != nil {
		return err
	}
	close(q.work)
	<-q.done
	return nil
}

func (q *Queue) doFlush(entries []*queueItem) {
	for _, item := range entries {
		res, err := q.ex.Update(item.point)
		item.notify(res, err)
	}
}

// queueItem is one in-flight Submit call; f resolves once notify runs.
type queueItem struct {
	point rcforest.Point
	c     chan Future
	f     Future
}

func newQueueItem(p rcforest.Point) *queueItem {
	it := &queueItem{point: p, c: make(chan Future, 1)}
	it.f = sync.OnceValues(func() (forest.UpdateResult, error) {
		return (<-it.c)()
	})
	return it
}

func (it *queueItem) notify(res forest.UpdateResult, err error) {
	it.c <- func() (forest.UpdateResult, error) { return res, err }
	close(it.c)
}
