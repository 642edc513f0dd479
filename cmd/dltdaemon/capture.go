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

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"

	"dlt/pkg/cfg"
	"dlt/pkg/proto"
)

// captureWriter re-frames live messages behind storage prefixes and
// appends them to a capture file, optionally snappy-compressed, rotating
// when the configured size is reached.
type captureWriter struct {
	mu      sync.Mutex
	conf    cfg.CaptureConfig
	file    *os.File
	w       io.Writer
	snappyW *snappy.Writer
	written int64
	seq     int
	prefix  []byte
}

func newCaptureWriter(conf cfg.CaptureConfig) (*captureWriter, error) {
	c := &captureWriter{conf: conf}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *captureWriter) open() error {
	name := fmt.Sprintf("%s-%d.dlt", c.conf.FilePrefix, c.seq)
	if c.conf.Compress {
		name += ".snappy"
	}
	f, err := os.Create(filepath.Join(c.conf.Dir, name))
	if err != nil {
		return err
	}
	c.file = f
	if c.conf.Compress {
		c.snappyW = snappy.NewBufferedWriter(f)
		c.w = c.snappyW
	} else {
		c.w = f
	}
	c.written = 0
	c.seq++
	return nil
}

// Write appends one message (without its serial marker) to the capture.
func (c *captureWriter) Write(msg []byte, ecu [4]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.prefix = proto.AppendStorageHeader(c.prefix[:0], proto.StorageHeader{
		Seconds:      uint32(now.Unix()),
		Microseconds: uint32(now.Nanosecond() / 1000),
		Ecu:          ecu,
	})
	if _, err := c.w.Write(c.prefix); err != nil {
		return err
	}
	n, err := c.w.Write(msg)
	if err != nil {
		return err
	}
	c.written += int64(len(c.prefix) + n)

	if c.conf.RotateSize > 0 && c.written >= c.conf.RotateSize {
		if err := c.closeLocked(); err != nil {
			return err
		}
		return c.open()
	}
	return nil
}

func (c *captureWriter) closeLocked() error {
	if c.snappyW != nil {
		if err := c.snappyW.Close(); err != nil {
			return err
		}
		c.snappyW = nil
	}
	return c.file.Close()
}

func (c *captureWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}
