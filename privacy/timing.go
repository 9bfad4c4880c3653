// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package privacy

import (
	"math/rand"
	"sync"
	"time"
)

// Scheduled is one message handed to a TimingObfuscator, tagged with where
// it is headed so a flushed batch can still be routed per-message.
type Scheduled struct {
	Dest    string
	Payload []byte
}

// TimingObfuscator hides message timing either by delaying each send a
// uniform random amount, or by collecting sends into a shuffled batch
// window, or both. The two techniques compose: delay jitters when a
// message enters the batch queue, batching jitters when it leaves.
type TimingObfuscator struct {
	MinDelayMS    int
	MaxDelayMS    int
	BatchWindowMS int

	mu      sync.Mutex
	pending []Scheduled
	timer   *time.Timer
	flush   func([]Scheduled)
}

// NewTimingObfuscator creates an obfuscator. flush is invoked with a
// shuffled batch whenever the batch window elapses; when BatchWindowMS is
// zero, Enqueue calls it at once with each message as a singleton batch.
func NewTimingObfuscator(minDelayMS, maxDelayMS, batchWindowMS int, flush func([]Scheduled)) *TimingObfuscator {
	return &TimingObfuscator{
		MinDelayMS:    minDelayMS,
		MaxDelayMS:    maxDelayMS,
		BatchWindowMS: batchWindowMS,
		flush:         flush,
	}
}

// Delay returns how long to hold msg before sending, uniformly sampled
// from [MinDelayMS, MaxDelayMS]. Zero bounds mean no delay.
func (o *TimingObfuscator) Delay() time.Duration {
	if o.MaxDelayMS <= 0 || o.MaxDelayMS < o.MinDelayMS {
		return 0
	}
	span := o.MaxDelayMS - o.MinDelayMS
	jitter := 0
	if span > 0 {
		jitter = rand.Intn(span + 1)
	}
	return time.Duration(o.MinDelayMS+jitter) * time.Millisecond
}

// Enqueue adds msg to the current batch window, starting the window's
// timer on the first message. When BatchWindowMS is zero, Enqueue flushes
// msg immediately as a singleton batch instead of buffering it.
func (o *TimingObfuscator) Enqueue(msg Scheduled) {
	if o.BatchWindowMS <= 0 {
		o.flush([]Scheduled{msg})
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, msg)
	if o.timer == nil {
		o.timer = time.AfterFunc(time.Duration(o.BatchWindowMS)*time.Millisecond, o.drain)
	}
}

// drain shuffles and flushes whatever accumulated during the window.
func (o *TimingObfuscator) drain() {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.timer = nil
	o.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	rand.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	o.flush(batch)
}

// Stop cancels any pending batch timer without flushing, for shutdown.
func (o *TimingObfuscator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
