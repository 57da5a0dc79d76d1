// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

// Paths holds the URL path components appended to resolved peer hosts.
type Paths struct {
	// Setup receives chain setup broadcasts.
	Setup string

	// Run receives downstream data hand-offs.
	Run string

	// Notify receives node status reports on the monitoring peer.
	Notify string
}

// DefaultPaths returns the path components used unless configured otherwise.
func DefaultPaths() Paths {
	return Paths{
		Setup:  "/chain/setup",
		Run:    "/node/run",
		Notify: "/chain/notify",
	}
}

// BroadcastSetupMessage instructs the fabric to materialize a chain's
// remote stages. It is handed to the broadcast-setup callback, which
// issues one setup POST per resolvable stage.
type BroadcastSetupMessage struct {
	// Signal is always [SignalNodeCreate].
	Signal Signal `json:"signal"`

	// Chain carries the allocated chain ID and the location-stripped
	// stage configs each recipient may own.
	Chain ChainDescriptor `json:"chain"`

	// MonitoringHost is the base URL peers should route reports to.
	// Optional; empty means the initiator advertised none.
	MonitoringHost string `json:"monitoringHost,omitempty"`
}

// SetupMessage is the per-stage wire body of a setup POST.
type SetupMessage struct {
	ChainID        string      `json:"chainId"`
	RemoteConfigs  StageConfig `json:"remoteConfigs"`
	MonitoringHost string      `json:"monitoringHost,omitempty"`
}

// CallbackPayload is the downstream data hand-off: the wire body of a run
// POST and the argument of the remote-service callback.
type CallbackPayload struct {
	ChainID  string         `json:"chainId"`
	TargetID string         `json:"targetId"`
	Meta     map[string]any `json:"meta,omitempty"`
	Data     any            `json:"data"`
}

// ReportingMessage is a single node status-change event routed toward the
// chain's monitoring peer. Timestamp is unix milliseconds.
type ReportingMessage struct {
	ChainID   string     `json:"chainId"`
	NodeID    string     `json:"nodeId"`
	Status    NodeStatus `json:"status"`
	Timestamp int64      `json:"timestamp"`
}

// ChainState is an atomic snapshot of a chain's node buckets. A node ID
// appears in exactly one bucket, or in none while PAUSED or IN_PROGRESS.
type ChainState struct {
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
	Failed    []string `json:"failed"`
}

// BroadcastReportingMessage is a chain-level aggregated status update
// routed to the chain's monitoring host.
type BroadcastReportingMessage struct {
	ChainID string     `json:"chainId"`
	State   ChainState `json:"state"`
}

// ReportSignalHandler delivers a local status event into the monitoring
// machinery on this host.
type ReportSignalHandler func(msg ReportingMessage)
