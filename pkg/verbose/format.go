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

package verbose

import (
	"fmt"
	"strings"
)

// Format renders a verbose payload as one line of space-separated
// values, names and units included when present.
func Format(payload []byte, payloadBigEndian bool) (string, error) {
	args, err := Arguments(payload, payloadBigEndian)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		formatArg(&sb, &args[i])
	}
	return sb.String(), nil
}

func formatArg(sb *strings.Builder, a *Argument) {
	if a.HasName() && a.Name() != "" {
		sb.WriteString(a.Name())
		sb.WriteByte('=')
	}
	switch {
	case a.Kind() == KindStruct:
		sb.WriteByte('{')
		for i := range a.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatArg(sb, &a.entries[i])
		}
		sb.WriteByte('}')
	case a.IsArray():
		fmt.Fprintf(sb, "%s[%d dims, %d elems]", a.Kind(), len(a.dims), a.ElementCount())
	case a.HasFixedPoint():
		fmt.Fprintf(sb, "%g", a.Logical())
	case a.Kind() == KindRaw:
		fmt.Fprintf(sb, "0x%x", a.Data())
	default:
		sb.WriteString(a.String())
	}
	if a.Unit() != "" {
		sb.WriteByte(' ')
		sb.WriteString(a.Unit())
	}
}
