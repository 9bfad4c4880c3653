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

package discovery

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/dawn-network/node/peer"
)

// ServiceType is the advertised service name, mirroring the mDNS service
// record a real zeroconf/Bonjour responder would use for this name.
const ServiceType = "_projectdawn._tcp.local."

// mdnsGroup is a site-local multicast group reserved for this service's
// own announcements; it intentionally avoids the real mDNS group/port
// (224.0.0.251:5353) so this simplified implementation never collides
// with a genuine mDNS responder sharing the host.
const mdnsGroup = "239.255.42.99:42424"

type mdnsRecord struct {
	Service string `json:"service"`
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

// MDNSDiscovery advertises this node and listens for peers on the local
// network using UDP multicast. It approximates the wire shape of a real
// mDNS service record (service type, node_id/address properties)
// without implementing the full RFC 6762 protocol: no example in the
// corpus vendors an mDNS/zeroconf client, so this stays on stdlib `net`.
type MDNSDiscovery struct {
	registry *peer.Registry
	selfID   string
	selfAddr string

	conn   *net.UDPConn
	stop   chan struct{}
	ticker *time.Ticker
}

// NewMDNSDiscovery creates a discoverer that will advertise selfID/selfAddr
// and record every peer record it observes into registry.
func NewMDNSDiscovery(registry *peer.Registry, selfID, selfAddr string) *MDNSDiscovery {
	return &MDNSDiscovery{registry: registry, selfID: selfID, selfAddr: selfAddr, stop: make(chan struct{})}
}

// Start joins the multicast group, begins listening for peer
// announcements, and announces this node every announceEvery.
func (m *MDNSDiscovery) Start(announceEvery time.Duration) error {
	addr, err := net.ResolveUDPAddr("udp4", mdnsGroup)
	if err != nil {
		return fmt.Errorf("discovery: resolve mdns multicast group: %w", err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("discovery: join mdns multicast group: %w", err)
	}
	m.conn = conn
	m.ticker = time.NewTicker(announceEvery)

	go m.listenLoop()
	go m.announceLoop()
	return nil
}

// Stop leaves the multicast group and halts background goroutines.
func (m *MDNSDiscovery) Stop() {
	close(m.stop)
	if m.ticker != nil {
		m.ticker.Stop()
	}
	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *MDNSDiscovery) announceLoop() {
	m.announce()
	for {
		select {
		case <-m.ticker.C:
			m.announce()
		case <-m.stop:
			return
		}
	}
}

func (m *MDNSDiscovery) announce() {
	rec := mdnsRecord{Service: ServiceType, NodeID: m.selfID, Address: m.selfAddr}
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	dst, err := net.ResolveUDPAddr("udp4", mdnsGroup)
	if err != nil {
		return
	}
	if _, err := m.conn.WriteToUDP(payload, dst); err != nil {
		log.Printf("discovery: mdns announce failed: %v", err)
	}
}

func (m *MDNSDiscovery) listenLoop() {
	buf := make([]byte, 2048)
	for {
		select {
		case <-m.stop:
			return
		default:
		}
		m.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		var rec mdnsRecord
		if err := json.Unmarshal(buf[:n], &rec); err != nil {
			continue
		}
		if rec.Service != ServiceType || rec.NodeID == "" || rec.NodeID == m.selfID {
			continue
		}
		m.registry.AddPeer(rec.NodeID, rec.Address, nil)
	}
}
