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
	"strings"

	"github.com/golang/snappy"

	"dlt/pkg/cmd"
	"dlt/pkg/proto"
)

type FileCommand struct {
	cmd.Command
	optIn     string
	optSnappy bool
	printer   printer
}

func (c *FileCommand) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringVar(&c.optIn, "in", "", "capture file to decode")
	c.BoolVar(&c.optSnappy, "snappy", false, "treat input as snappy-compressed (implied by .snappy suffix)")
	c.StringVar(&c.printer.app, "app", "", "only show messages from this app id")
	c.StringVar(&c.printer.ctx, "ctx", "", "only show messages from this context id")
	c.IntVar(&c.printer.maxLevel, "level", 0, "only show log messages at or below this level (0 = all)")
	c.BoolVar(&c.printer.pretty, "pretty", false, "multi-line header dump per message")
}

func (c *FileCommand) Exec() {
	if c.optIn == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		c.PrintUsage()
		os.Exit(1)
	}
	f, err := os.Open(c.optIn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	var data []byte
	if c.optSnappy || strings.HasSuffix(c.optIn, ".snappy") {
		data, err = io.ReadAll(snappy.NewReader(f))
	} else {
		data, err = io.ReadAll(f)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	offset := 0
	for offset < len(data) {
		var m proto.Message
		consumed, err := m.Decode(data[offset:])
		if err != nil {
			if proto.IsIncomplete(err) {
				fmt.Fprintf(os.Stderr, "truncated capture: %d trailing bytes\n", len(data)-offset)
			} else {
				fmt.Fprintf(os.Stderr, "decode failed at offset %d: %v\n", offset, err)
			}
			os.Exit(1)
		}
		c.printer.print(&m)
		offset += consumed
	}
	fmt.Fprintf(os.Stderr, "%d messages\n", c.printer.count)
}
