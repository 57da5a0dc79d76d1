// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"log/slog"
	"sync"
)

// MonitoringAgent tracks, for each chain this peer knows about, the remote
// monitoring host URL, and — on the monitoring peer itself — the per-chain
// aggregate node state fed by notify ingress.
//
// There is one agent per connector process, constructed explicitly at
// process start and passed by reference into the callback wiring.
type MonitoringAgent struct {
	// mu guards both maps.
	mu sync.Mutex

	// hosts maps chain ID to the monitoring peer base URL.
	hosts map[string]string

	// chains maps chain ID to the last reported status per node.
	chains map[string]map[string]NodeStatus

	// logger is the SLogger to use.
	logger SLogger
}

// NewMonitoringAgent returns an empty [*MonitoringAgent].
func NewMonitoringAgent(logger SLogger) *MonitoringAgent {
	return &MonitoringAgent{
		hosts:  make(map[string]string),
		chains: make(map[string]map[string]NodeStatus),
		logger: logger,
	}
}

// Register records the monitoring host for a chain. Registration happens
// when a setup broadcast is received; re-registration overwrites.
func (a *MonitoringAgent) Register(chainID, host string) {
	a.mu.Lock()
	a.hosts[chainID] = host
	a.mu.Unlock()
	a.logger.Info(
		"monitoringHostRegistered",
		slog.String("chainId", chainID),
		slog.String("monitoringHost", host),
	)
}

// GetRemoteMonitoringHost returns the monitoring host URL for the chain
// and whether one is registered.
func (a *MonitoringAgent) GetRemoteMonitoringHost(chainID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	host, found := a.hosts[chainID]
	return host, found
}

// Forget drops everything recorded for the chain. Deregistration is explicit.
func (a *MonitoringAgent) Forget(chainID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.hosts, chainID)
	delete(a.chains, chainID)
}

// RecordReport folds a node status report into the chain's aggregate state.
func (a *MonitoringAgent) RecordReport(msg ReportingMessage) {
	a.mu.Lock()
	statuses := a.chains[msg.ChainID]
	if statuses == nil {
		statuses = make(map[string]NodeStatus)
		a.chains[msg.ChainID] = statuses
	}
	statuses[msg.NodeID] = msg.Status
	a.mu.Unlock()
	a.logger.Info(
		"reportRecorded",
		slog.String("chainId", msg.ChainID),
		slog.String("nodeId", msg.NodeID),
		slog.String("status", string(msg.Status)),
		slog.Int64("timestamp", msg.Timestamp),
	)
}

// ChainState snapshots the aggregate buckets for a chain. Nodes whose last
// report was PAUSED or IN_PROGRESS occupy no bucket.
func (a *MonitoringAgent) ChainState(chainID string) ChainState {
	a.mu.Lock()
	defer a.mu.Unlock()
	completed := make(map[string]struct{})
	pending := make(map[string]struct{})
	failed := make(map[string]struct{})
	for nodeID, status := range a.chains[chainID] {
		switch status {
		case StatusCompleted:
			completed[nodeID] = struct{}{}
		case StatusPending:
			pending[nodeID] = struct{}{}
		case StatusFailed:
			failed[nodeID] = struct{}{}
		}
	}
	return ChainState{
		Completed: sortedKeys(completed),
		Pending:   sortedKeys(pending),
		Failed:    sortedKeys(failed),
	}
}
