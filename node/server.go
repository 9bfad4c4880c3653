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

package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/keys"
	"github.com/dawn-network/node/dht"
	"github.com/dawn-network/node/discovery"
	"github.com/dawn-network/node/health"
	"github.com/dawn-network/node/peer"
	"github.com/dawn-network/node/privacy"
	"github.com/dawn-network/node/transport"
)

// ServerConfig configures a full running node process: the node logic
// plus every background subsystem that drives it, per the startup
// sequence of load/generate identity, open listener, start discovery,
// announce local agents, begin periodic gossip.
type ServerConfig struct {
	Address          string
	Bootstrap        []string
	EnableDHT        bool
	EnableMDNS       bool
	EnablePrivacy    bool
	PeerDataPath     string
	PeerTimeout      time.Duration
	AnnounceInterval time.Duration
	RPCTimeout       time.Duration
	TransportOptions transport.Options
	Privacy          privacy.Config
}

// Server owns a Node and every background subsystem (transport listener,
// discovery mechanisms, DHT maintenance, privacy layer) for the lifetime
// of one running process.
type Server struct {
	cfg      ServerConfig
	identity *crypto.Identity

	Node    *Node
	Peers   *peer.Registry
	Conns   *ConnManager
	DHT     *dht.DHT
	Privacy *privacy.PrivacyLayer
	Health  *health.HealthChecker

	httpServer *http.Server
	bootstrap  *discovery.Bootstrap
	gossip     *discovery.Gossip
	mdns       *discovery.MDNSDiscovery
	listening  atomic.Bool

	cancel context.CancelFunc
}

// NewServer wires a Node and its background subsystems together without
// starting any of them; call Start to begin serving.
func NewServer(identity *crypto.Identity, cfg ServerConfig) *Server {
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = DefaultRPCTimeout
	}
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = discovery.DefaultAnnounceInterval
	}
	if cfg.PeerTimeout <= 0 {
		cfg.PeerTimeout = peer.DefaultPeerTimeout
	}
	if cfg.TransportOptions == (transport.Options{}) {
		cfg.TransportOptions = transport.DefaultOptions()
	}

	s := &Server{cfg: cfg, identity: identity}
	s.Peers = peer.NewRegistry(cfg.PeerDataPath)

	s.Node = New(identity, Config{
		Address:    cfg.Address,
		RPCTimeout: cfg.RPCTimeout,
		Peers:      s.Peers,
		OnGossip:   s.handleGossipParams,
	})

	s.Conns = NewConnManager(identity, cfg.TransportOptions, s.Node, s.Peers)
	s.Node.caller = s.Conns

	if cfg.EnableDHT {
		if selfID, err := dht.ParseID(identity.NodeID()); err == nil {
			s.DHT = dht.New(selfID, newDHTQuerier(s.Conns))
			s.Node.SetDHT(s.DHT)
		}
	}

	if cfg.EnablePrivacy {
		ephemeral, err := keys.GenerateX25519KeyPair()
		if err == nil {
			s.Privacy = privacy.NewPrivacyLayer(cfg.Privacy, identity.NodeID(), ephemeral, s.flushScheduled)
		}
	}

	var announcer discovery.Announcer = newGossipAnnouncer(s.Conns)
	if s.Privacy != nil {
		announcer = newPrivacyGossipAnnouncer(s.Conns, s.Privacy)
	}

	s.bootstrap = discovery.NewBootstrap(cfg.Bootstrap, s.Peers, newAddrCaller(s.Conns))
	s.gossip = discovery.NewGossip(
		s.Peers, identity.NodeID(), cfg.AnnounceInterval, announcer,
		s.Node.TaskManager.GetState, s.Node.AgentRegistry.GetState,
		s.Node.TaskManager.Merge, s.Node.AgentRegistry.Merge,
	)

	s.Health = health.NewHealthChecker(5 * time.Second)
	s.Health.RegisterCheck("transport", health.TransportHealthCheck(s.listening.Load))
	s.Health.RegisterCheck("peers", health.PeerRegistryHealthCheck(
		func() int { return s.Peers.Stats().Total },
		func() int { return s.Peers.Stats().Connected },
	))
	if s.DHT != nil {
		s.Health.RegisterCheck("dht", health.DHTHealthCheck(s.DHT.Size))
	}
	return s
}

// flushScheduled sends each timing-obfuscator-released message to its
// Scheduled.Dest with the payload PrivacyLayer.Send built: the direct
// destination and padded bytes, or the first onion hop and the outer
// onion layer when onion routing is on.
func (s *Server) flushScheduled(batch []privacy.Scheduled) {
	for _, msg := range batch {
		if _, err := s.Conns.Call(context.Background(), msg.Dest, msg.Payload); err != nil {
			s.Peers.RecordFailure(msg.Dest)
		}
	}
}

// handleGossipParams decodes an inbound gossip_announcement's raw params
// and merges it into the gossip component, per node/methods.go's
// gossip_announcement handler.
func (s *Server) handleGossipParams(params json.RawMessage) {
	var ann discovery.Announcement
	if err := json.Unmarshal(params, &ann); err != nil {
		return
	}
	s.gossip.HandleAnnouncement(ann, "")
}

// Start brings the node fully online: opens the listener, starts every
// enabled discovery mechanism, and begins periodic gossip. Discovery
// failures are best-effort (an mDNS socket that cannot open is skipped),
// but a peer registry snapshot that cannot be read or decoded aborts
// startup with an error.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Peers.Load(); err != nil {
		return fmt.Errorf("node: load peer registry: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	bindAddr, err := listenAddrFromURL(s.cfg.Address)
	if err != nil {
		return fmt.Errorf("node: parse listen address %q: %w", s.cfg.Address, err)
	}

	transportServer := transport.NewServer(s.identity, s.cfg.TransportOptions, s.Conns.Adopt)
	s.httpServer = &http.Server{Addr: bindAddr, Handler: transportServer.Handler()}

	listenErrs := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErrs <- err
		}
	}()

	if len(s.cfg.Bootstrap) > 0 {
		s.bootstrap.Discover(runCtx)
	}
	if s.cfg.EnableMDNS {
		s.mdns = discovery.NewMDNSDiscovery(s.Peers, s.identity.NodeID(), s.cfg.Address)
		_ = s.mdns.Start(s.cfg.AnnounceInterval)
	}
	s.gossip.Start(runCtx)

	if s.DHT != nil {
		go s.dhtMaintenanceLoop(runCtx)
	}

	s.listening.Store(true)

	select {
	case err := <-listenErrs:
		s.listening.Store(false)
		return err
	default:
		return nil
	}
}

// dhtMaintenanceLoop periodically sweeps expired local DHT entries.
func (s *Server) dhtMaintenanceLoop(ctx context.Context) {
	ticker := time.NewTicker(dht.DefaultTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.DHT.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Stop tears the node down: cancels background tasks, closes outbound
// connections, flushes the peer registry, and closes the listener. Every
// step runs even if an earlier one fails, so teardown makes progress
// despite per-subsystem errors.
func (s *Server) Stop(ctx context.Context) error {
	s.listening.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
	s.gossip.Stop()
	if s.mdns != nil {
		s.mdns.Stop()
	}
	if s.Privacy != nil {
		s.Privacy.Stop()
	}
	s.Conns.Close()

	saveErr := s.Peers.Save()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	if saveErr != nil {
		return saveErr
	}
	return shutdownErr
}

// listenAddrFromURL reduces a node's advertised ws:// address to the
// bare host:port http.Server expects to bind.
func listenAddrFromURL(addr string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return addr, nil
	}
	return u.Host, nil
}
