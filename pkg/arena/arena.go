//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package arena provides a bump allocator over a fixed byte region,
// handing out aligned offsets instead of pointers so the region can be
// shared across a flat-memory boundary.
package arena

const (
	kDefaultCapacity = 16 * 1024
	kAlignment       = 8
)

// NullOffset is the allocation failure sentinel. Offset 0 is reserved
// and never handed out.
const NullOffset = 0

// Arena allocates forward from a cursor; individual frees are
// bookkeeping only and memory is reclaimed by Reset.
type Arena struct {
	buf    []byte
	cursor int
	allocs int
	frees  int
}

func New(capacity int) *Arena {
	if capacity < kAlignment {
		capacity = kAlignment
	}
	return &Arena{
		buf:    make([]byte, capacity),
		cursor: kAlignment,
	}
}

func NewDefault() *Arena {
	return New(kDefaultCapacity)
}

// Allocate returns an 8-byte aligned offset into the region, or
// NullOffset if the request cannot be satisfied. A failed allocation
// leaves the cursor where it was.
func (a *Arena) Allocate(size int) int {
	if size <= 0 {
		return NullOffset
	}
	padded := (size + kAlignment - 1) &^ (kAlignment - 1)
	if padded > len(a.buf)-a.cursor {
		return NullOffset
	}
	off := a.cursor
	a.cursor += padded
	a.allocs++
	return off
}

// Deallocate records that the block at offset is no longer in use. The
// space is not reusable until Reset; a zero or out-of-range offset is
// ignored.
func (a *Arena) Deallocate(offset int) {
	if offset <= NullOffset || offset >= a.cursor {
		return
	}
	a.frees++
}

// Reset zeroes the used region and rewinds the cursor, invalidating
// every outstanding offset.
func (a *Arena) Reset() {
	for i := 0; i < a.cursor; i++ {
		a.buf[i] = 0
	}
	a.cursor = kAlignment
	a.allocs = 0
	a.frees = 0
}

// Usage reports bytes consumed by the cursor, including the reserved
// prefix.
func (a *Arena) Usage() int {
	return a.cursor
}

func (a *Arena) Capacity() int {
	return len(a.buf)
}

// LiveAllocations is the count of blocks handed out and not yet
// returned via Deallocate.
func (a *Arena) LiveAllocations() int {
	return a.allocs - a.frees
}

// Bytes returns the slice backing [offset, offset+size); nil when the
// range does not lie within the allocated region.
func (a *Arena) Bytes(offset, size int) []byte {
	if offset < kAlignment || size < 0 || offset+size > a.cursor {
		return nil
	}
	return a.buf[offset : offset+size]
}

// Buffer exposes the whole backing region.
func (a *Arena) Buffer() []byte {
	return a.buf
}
