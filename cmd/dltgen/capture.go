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

	"github.com/golang/snappy"

	"dlt/pkg/cmd"
)

type CaptureCommand struct {
	cmd.Command
	optOut    string
	optCount  int
	optSnappy bool
	optEcu    string
	optApp    string
	optCtx    string
}

func (c *CaptureCommand) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringVar(&c.optOut, "out", "capture.dlt", "output file")
	c.IntVar(&c.optCount, "count", 100, "number of messages to generate")
	c.BoolVar(&c.optSnappy, "snappy", false, "snappy-compress the output")
	c.StringVar(&c.optEcu, "ecu", "ECU1", "ecu id")
	c.StringVar(&c.optApp, "app", "GEN", "app id")
	c.StringVar(&c.optCtx, "ctx", "TEST", "context id")
}

func (c *CaptureCommand) Exec() {
	g, err := newGenerator(c.optEcu, c.optApp, c.optCtx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	f, err := os.Create(c.optOut)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	var w io.Writer = f
	var sw *snappy.Writer
	if c.optSnappy {
		sw = snappy.NewBufferedWriter(f)
		w = sw
	}

	buf := make([]byte, 1024)
	for i := 0; i < c.optCount; i++ {
		n, err := g.Next(buf)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if _, err = w.Write(buf[:n]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	fmt.Printf("wrote %d messages to %s\n", c.optCount, c.optOut)
}
