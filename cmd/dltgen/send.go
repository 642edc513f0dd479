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
	"net"
	"os"
	"time"

	"dlt/pkg/cmd"
)

type SendCommand struct {
	cmd.Command
	optAddr     string
	optCount    int
	optInterval time.Duration
	optEcu      string
	optApp      string
	optCtx      string
}

func (c *SendCommand) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringVar(&c.optAddr, "addr", "127.0.0.1:3490", "daemon address")
	c.IntVar(&c.optCount, "count", 0, "number of messages to send (0 = until interrupted)")
	c.DurationVar(&c.optInterval, "interval", 100*time.Millisecond, "delay between messages")
	c.StringVar(&c.optEcu, "ecu", "ECU1", "ecu id")
	c.StringVar(&c.optApp, "app", "GEN", "app id")
	c.StringVar(&c.optCtx, "ctx", "TEST", "context id")
}

func (c *SendCommand) Exec() {
	g, err := newGenerator(c.optEcu, c.optApp, c.optCtx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	conn, err := net.Dial("tcp", c.optAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	buf := make([]byte, 1024)
	for i := 0; c.optCount == 0 || i < c.optCount; i++ {
		n, err := g.Next(buf)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if _, err = conn.Write(buf[:n]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		time.Sleep(c.optInterval)
	}
}
