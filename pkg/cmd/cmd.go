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

// Package cmd is the subcommand registry shared by the dlt tools.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
)

var commands = make(map[string]ICommand)

type (
	ICommand interface {
		GetName() string
		GetDesc() string
		Init(name string, desc string)
		Parse(args []string) error
		Exec()
		PrintUsage()
	}

	// Command is the embeddable base: a named flag set plus the
	// bookkeeping the registry needs.
	Command struct {
		flag.FlagSet
		name string
		desc string
	}
)

func (c *Command) Init(name string, desc string) {
	c.name = name
	c.desc = desc
	c.FlagSet.Init(name, flag.ExitOnError)
	c.FlagSet.Usage = c.PrintUsage
}

func (c *Command) GetName() string {
	return c.name
}

func (c *Command) GetDesc() string {
	return c.desc
}

func (c *Command) Parse(args []string) error {
	return c.FlagSet.Parse(args)
}

func (c *Command) PrintUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n%s\n\nOptions:\n",
		filepath.Base(os.Args[0]), c.name, c.desc)
	c.FlagSet.PrintDefaults()
}

func Register(c ICommand) {
	commands[c.GetName()] = c
}

func GetCommand(name string) ICommand {
	return commands[name]
}

func PrintUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\nCommands:\n",
		filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stderr, 0, 8, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, commands[name].GetDesc())
	}
	w.Flush()
}

// Execute dispatches os.Args[1] to the matching registered command.
func Execute() {
	if len(os.Args) < 2 {
		PrintUsage()
		os.Exit(1)
	}
	c := GetCommand(os.Args[1])
	if c == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		PrintUsage()
		os.Exit(1)
	}
	if err := c.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	c.Exec()
}
