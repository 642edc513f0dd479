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

package provider

import (
	"sync"
	"testing"
)

func TestUnboundSlots(t *testing.T) {
	var r Registry
	if _, ok := r.Timestamp(); ok {
		t.Error("timestamp must be unbound")
	}
	if _, ok := r.SessionID(); ok {
		t.Error("session id must be unbound")
	}
}

func TestBindAndRead(t *testing.T) {
	var r Registry
	if err := r.BindTimestamp(TimestampFunc(func() uint32 { return 777 })); err != nil {
		t.Fatal(err)
	}
	if err := r.BindSessionID(SessionIDFunc(func() uint32 { return 42 })); err != nil {
		t.Fatal(err)
	}
	if p, ok := r.Timestamp(); !ok || p.GetTimestamp() != 777 {
		t.Error("bad timestamp read")
	}
	if p, ok := r.SessionID(); !ok || p.GetSessionID() != 42 {
		t.Error("bad session id read")
	}
}

// A second bind fails and leaves the original binding in place.
func TestRebindRejected(t *testing.T) {
	var r Registry
	if err := r.BindTimestamp(TimestampFunc(func() uint32 { return 1 })); err != nil {
		t.Fatal(err)
	}
	if err := r.BindTimestamp(TimestampFunc(func() uint32 { return 2 })); err != ErrAlreadyBound {
		t.Fatalf("expect ErrAlreadyBound, got %v", err)
	}
	if p, _ := r.Timestamp(); p.GetTimestamp() != 1 {
		t.Error("original binding must survive")
	}
}

func TestNilProviderRejected(t *testing.T) {
	var r Registry
	if err := r.BindTimestamp(nil); err == nil {
		t.Error("nil provider must be rejected")
	}
	if _, ok := r.Timestamp(); ok {
		t.Error("failed bind must not claim the slot")
	}
}

func TestConcurrentBindSingleWinner(t *testing.T) {
	var r Registry
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.BindSessionID(SessionIDFunc(func() uint32 { return uint32(i) }))
		}(i)
	}
	wg.Wait()
	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	if won != 1 {
		t.Errorf("expect exactly one winner, got %d", won)
	}
}
