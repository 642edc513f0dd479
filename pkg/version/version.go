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

package version

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

const (
	Major = 1
	Minor = 0
	Patch = 0
)

var (
	Version   string = fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	Revision  string = ""
	BuildId   string = ""
	BuildTime string = ""
)

// Packed returns major<<16 | minor<<8 | patch, the form handed across
// the flat-memory boundary.
func Packed() int32 {
	return Major<<16 | Minor<<8 | Patch
}

func OnelineVersionString() string {
	s := Version
	if Revision != "" {
		s += "." + Revision
	}
	if BuildId != "" {
		s += "." + BuildId
	}
	return s
}

func WriteVersionInfo(w io.Writer) {
	binName := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "\ndlt %s %s\n\n", binName, Version)

	if BuildId != "" {
		fmt.Fprintf(w, "  Build No. : %s\n", BuildId)
	}
	if Revision != "" {
		fmt.Fprintf(w, "  Git Commit: %s\n", Revision)
	}
	fmt.Fprintf(w, "  Go Version: %s\n  OS/Arch   : %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(w, "  Built     : %s\n", BuildTime)
	}
	fmt.Fprintf(w, "\n")
}

func PrintVersionInfo() {
	WriteVersionInfo(os.Stdout)
}

func HttpHandler(w http.ResponseWriter, r *http.Request) {
	WriteVersionInfo(w)
}
