// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matrixorigin/mocatalog/pkg/config"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
	v2 "github.com/matrixorigin/mocatalog/pkg/util/metric/v2"
)

var (
	configFile  = flag.String("cfg", "", "toml configuration of the demo session, defaults are used when empty")
	metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address and wait for a signal after the session")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err.Error()))
	}
	logutil.SetupMOLogger(&cfg.Log)

	var server *http.Server
	if *metricsAddr != "" {
		server = serveMetrics(*metricsAddr)
	}
	if err := runSession(context.Background(), cfg); err != nil {
		logutil.Error("session failed", zap.Error(err))
		os.Exit(1)
	}
	if server != nil {
		waitSignalToStop(server)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewDefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(v2.GetPrometheusGatherer(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logutil.Info("serving metrics", zap.String("addr", addr))
	return server
}

func waitSignalToStop(server *http.Server) {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGINT)
	<-sigchan
	if err := server.Close(); err != nil {
		logutil.Warn("close metrics server", zap.Error(err))
	}
}
