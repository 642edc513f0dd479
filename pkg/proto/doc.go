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

// Package proto implements the DLT r19.11 message layer: framing
// prefixes, the standard and extended headers, and message generation.
//
// Wire layout of one message:
//
//	[storage header 16B]? [serial header 4B]? standard header 4B
//	[ecu 4B]? [session 4B]? [timestamp 4B]? [extended header 10B]? payload
//
// The standard header length field counts everything from the standard
// header through the payload; framing prefixes are never counted.
package proto
