// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// NewConnectorHandler returns the HTTP ingress of a connector peer: the
// receiving side of the setup, run, and notify wire messages, routed on
// the supervisor's configured paths.
//
// The pipelines argument supplies processor pipelines for nodes
// materialized by setup broadcasts; it may be nil. The embedding process
// binds the handler to a listener; port binding is out of scope here.
func NewConnectorHandler(sup *Supervisor, agent *MonitoringAgent, pipelines *ServiceRegistry, logger SLogger) http.Handler {
	ingress := &connectorIngress{
		agent:     agent,
		logger:    logger,
		pipelines: pipelines,
		sup:       sup,
	}
	paths := sup.Paths()
	router := mux.NewRouter()
	router.HandleFunc(paths.Setup, ingress.handleSetup).Methods(http.MethodPost)
	router.HandleFunc(paths.Run, ingress.handleRun).Methods(http.MethodPost)
	router.HandleFunc(paths.Notify, ingress.handleNotify).Methods(http.MethodPost)
	return router
}

// connectorIngress handles the wire messages arriving from peers.
type connectorIngress struct {
	agent     *MonitoringAgent
	logger    SLogger
	pipelines *ServiceRegistry
	sup       *Supervisor
}

// handleSetup materializes the broadcast stage on this peer and registers
// the chain's monitoring host.
func (ci *connectorIngress) handleSetup(w http.ResponseWriter, r *http.Request) {
	var msg SetupMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed setup message"})
		return
	}
	if msg.ChainID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing chainId"})
		return
	}
	if msg.MonitoringHost != "" {
		ci.agent.Register(msg.ChainID, msg.MonitoringHost)
	}
	nodeIDs := ci.sup.MaterializeStage(msg.ChainID, msg.RemoteConfigs, ci.pipelines)
	ci.logger.Info(
		"setupReceived",
		slog.String("chainId", msg.ChainID),
		slog.Int("nodes", len(nodeIDs)),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"chainId": msg.ChainID, "nodeIds": nodeIDs})
}

// handleRun feeds a downstream hand-off into the node bound to the
// payload's chain and target.
func (ci *connectorIngress) handleRun(w http.ResponseWriter, r *http.Request) {
	var payload CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed run payload"})
		return
	}
	if payload.ChainID == "" || payload.TargetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing chainId or targetId"})
		return
	}
	node, found := ci.sup.NodeForTarget(payload.ChainID, payload.TargetID)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no node for target"})
		return
	}
	_, err := ci.sup.Dispatch(r.Context(), SupervisorPayload{
		Signal: SignalNodeRun,
		ID:     node.ID(),
		Data:   payload.Data,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"nodeId": node.ID(),
		"status": string(node.Status()),
	})
}

// handleNotify folds a node status report into the agent's aggregate state.
func (ci *connectorIngress) handleNotify(w http.ResponseWriter, r *http.Request) {
	var msg ReportingMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed reporting message"})
		return
	}
	if msg.ChainID == "" || msg.NodeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing chainId or nodeId"})
		return
	}
	ci.agent.RecordReport(msg)
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
