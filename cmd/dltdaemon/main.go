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

// dltdaemon accepts client connections over TCP, fans received
// messages out to the other clients, answers control requests, and can
// append all traffic to a rotating capture file.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"dlt/pkg/logging"
	"dlt/pkg/stats"
	"dlt/pkg/version"
)

func main() {
	var (
		configFile  string
		versionFlag bool
	)
	flag.StringVar(&configFile, "config", "", "TOML configuration file")
	flag.BoolVar(&versionFlag, "version", false, "display version information")
	flag.Parse()

	if versionFlag {
		version.PrintVersionInfo()
		return
	}
	if err := loadConfig(configFile); err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	logging.Initialize(Conf.Log, "dltdaemon")

	collector := stats.NewCollector()
	var statelog *stats.StateLog
	if Conf.Stats.Enabled {
		statelog = stats.NewStateLog(collector, time.Duration(Conf.Stats.Interval)*time.Second)
		if Conf.Stats.HttpAddr != "" {
			http.HandleFunc("/stats", collector.HttpHandler)
			http.HandleFunc("/version", version.HttpHandler)
			go func() {
				if err := http.ListenAndServe(Conf.Stats.HttpAddr, nil); err != nil {
					log.Error().Err(err).Msg("stats endpoint failed")
				}
			}()
		}
	}

	server, err := NewServer(&Conf, collector)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Stringer("signal", sig).Msg("shutting down")
		server.Shutdown()
		if statelog != nil {
			statelog.Stop()
		}
	}()

	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
