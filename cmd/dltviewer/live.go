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
	"net"
	"os"

	"dlt/pkg/cmd"
	"dlt/pkg/proto"
)

type LiveCommand struct {
	cmd.Command
	optAddr string
	printer printer
}

func (c *LiveCommand) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringVar(&c.optAddr, "addr", "127.0.0.1:3490", "daemon address")
	c.StringVar(&c.printer.app, "app", "", "only show messages from this app id")
	c.StringVar(&c.printer.ctx, "ctx", "", "only show messages from this context id")
	c.IntVar(&c.printer.maxLevel, "level", 0, "only show log messages at or below this level (0 = all)")
	c.BoolVar(&c.printer.pretty, "pretty", false, "multi-line header dump per message")
}

func (c *LiveCommand) Exec() {
	conn, err := net.Dial("tcp", c.optAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	dec := proto.NewDecoder(conn)
	for {
		var m proto.Message
		if err := dec.Decode(&m); err != nil {
			if err == io.EOF {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		c.printer.print(&m)
	}
}
