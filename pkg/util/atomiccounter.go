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

package util

import (
	"sync/atomic"
)

type AtomicCounter struct {
	cnt int32
}

func (c *AtomicCounter) Get() int32 {
	return atomic.LoadInt32(&c.cnt)
}

func (c *AtomicCounter) Add(delta int32) {
	atomic.AddInt32(&c.cnt, delta)
}

func (c *AtomicCounter) Reset() {
	atomic.StoreInt32(&c.cnt, 0)
}

// WrapCounter8 is the shared message counter: an atomic 8-bit sequence
// that wraps at 256.
type WrapCounter8 struct {
	cnt uint32
}

// Next returns the current value and advances the counter, atomically.
func (c *WrapCounter8) Next() uint8 {
	return uint8(atomic.AddUint32(&c.cnt, 1) - 1)
}

// Peek returns the value the next Next call will produce.
func (c *WrapCounter8) Peek() uint8 {
	return uint8(atomic.LoadUint32(&c.cnt))
}

func (c *WrapCounter8) Reset() {
	atomic.StoreUint32(&c.cnt, 0)
}
