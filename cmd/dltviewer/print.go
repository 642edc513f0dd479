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
	"strings"

	"dlt/pkg/proto"
	"dlt/pkg/service"
	"dlt/pkg/verbose"
)

// printer renders decoded messages, honoring app/ctx/level filters.
type printer struct {
	app      string
	ctx      string
	maxLevel int
	pretty   bool

	count int
}

func (p *printer) matches(m *proto.Message) bool {
	if !m.HasExtendedHeader() {
		return p.app == "" && p.ctx == ""
	}
	ext := m.GetExtendedHeader()
	if p.app != "" && proto.IDToString(ext.GetAppID()) != p.app {
		return false
	}
	if p.ctx != "" && proto.IDToString(ext.GetContextID()) != p.ctx {
		return false
	}
	if p.maxLevel > 0 && ext.GetMessageType() == proto.MessageTypeLog &&
		int(ext.GetLogLevel()) > p.maxLevel {
		return false
	}
	return true
}

func (p *printer) print(m *proto.Message) {
	if !p.matches(m) {
		return
	}
	p.count++
	if p.pretty {
		m.PrettyPrint()
		return
	}

	var sb strings.Builder
	if sh, ok := m.GetStorageHeader(); ok {
		fmt.Fprintf(&sb, "%d.%06d ", sh.Seconds, sh.Microseconds)
	}
	fmt.Fprintf(&sb, "%3d ", m.GetCounter())
	if m.HasEcuID() {
		fmt.Fprintf(&sb, "%-4s ", proto.IDToString(m.GetEcuID()))
	}
	if m.HasTimestamp() {
		fmt.Fprintf(&sb, "%10d ", m.GetTimestamp())
	}
	if m.HasExtendedHeader() {
		ext := m.GetExtendedHeader()
		fmt.Fprintf(&sb, "%-4s %-4s %-8s ",
			proto.IDToString(ext.GetAppID()),
			proto.IDToString(ext.GetContextID()),
			ext.GetMessageType())
		switch {
		case m.IsVerboseLog():
			fmt.Fprintf(&sb, "%-7s ", ext.GetLogLevel())
			if text, err := verbose.Format(m.GetPayload(), m.GetHeaderType().PayloadBigEndian()); err == nil {
				sb.WriteString(text)
			} else {
				fmt.Fprintf(&sb, "<bad verbose payload: %v>", err)
			}
		case m.IsControl():
			sb.WriteString(describeControl(m))
		default:
			if ext.GetMessageType() == proto.MessageTypeLog {
				fmt.Fprintf(&sb, "%-7s ", ext.GetLogLevel())
			}
			fmt.Fprintf(&sb, "%q", m.GetPayload())
		}
	} else {
		fmt.Fprintf(&sb, "%q", m.GetPayload())
	}
	fmt.Println(sb.String())
}

func describeControl(m *proto.Message) string {
	rec, err := service.Parse(m)
	if err != nil {
		return fmt.Sprintf("<bad control payload: %v>", err)
	}
	dir := "request"
	if rec.Response {
		dir = fmt.Sprintf("response %s", rec.Status)
	}
	s := fmt.Sprintf("%s %s", rec.ServiceID, dir)
	p1, p2, p3 := service.ParamMeaning(rec.ServiceID, rec.Response)
	if p1 != "" {
		s += fmt.Sprintf(" %s=%#x", p1, rec.Param1)
	}
	if p2 != "" {
		s += fmt.Sprintf(" %s=%#x", p2, rec.Param2)
	}
	if p3 != "" {
		s += fmt.Sprintf(" %s=%d", p3, rec.Param3)
	}
	return s
}
