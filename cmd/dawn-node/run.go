// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dawn-network/node/config"
	"github.com/dawn-network/node/internal/metrics"
	"github.com/dawn-network/node/node"
	"github.com/dawn-network/node/privacy"
	"github.com/dawn-network/node/transport"
)

var (
	configPath   string
	listenAddr   string
	dataDir      string
	bootstrapArg []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a node, joining or forming a Project Dawn network",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML/JSON config file")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "override the configured listen address (ws://host:port)")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
	runCmd.Flags().StringSliceVar(&bootstrapArg, "bootstrap", nil, "append bootstrap peer addresses")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Bootstrap = append(cfg.Bootstrap, bootstrapArg...)

	identity, generated, err := loadOrCreateIdentity(cfg.DataDir, cfg.Identity)
	if err != nil {
		return err
	}
	if generated {
		log.Printf("dawn-node: generated new identity %s", identity.NodeID())
	}

	srv := node.NewServer(identity, node.ServerConfig{
		Address:          cfg.Listen,
		Bootstrap:        cfg.Bootstrap,
		EnableDHT:        cfg.EnableDHT,
		EnableMDNS:       cfg.EnableMDNS,
		EnablePrivacy:    cfg.EnablePrivacy,
		PeerDataPath:     filepath.Join(cfg.DataDir, "peers.json"),
		PeerTimeout:      cfg.PeerTimeout,
		AnnounceInterval: cfg.AnnounceInterval,
		RPCTimeout:       cfg.RPCTimeout,
		TransportOptions: transport.DefaultOptions(),
		Privacy: privacy.Config{
			MinPaddedSize: cfg.Privacy.MinPaddedSize,
			MaxPadding:    cfg.Privacy.MaxPadding,
			MinDelayMS:    cfg.Privacy.MinDelayMS,
			MaxDelayMS:    cfg.Privacy.MaxDelayMS,
			BatchWindowMS: cfg.Privacy.BatchWindowMS,
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(srv, cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	log.Printf("dawn-node: starting node %s at %s", identity.NodeID(), cfg.Listen)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Printf("dawn-node: shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(stopCtx)
}

func serveMetrics(srv *node.Server, addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sys := srv.Health.GetSystemHealth(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if sys.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(sys)
	})
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Printf("dawn-node: metrics server exited: %v", err)
	}
}
