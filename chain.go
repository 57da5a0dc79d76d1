// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import "encoding/json"

// Location says whether a chain stage is materialized on the initiating
// host or on a remote peer.
type Location string

const (
	// LocationLocal places the stage on the initiating supervisor.
	LocationLocal = Location("local")

	// LocationRemote places the stage on a peer addressed via the setup broadcast.
	LocationRemote = Location("remote")
)

// ServiceRef identifies one target service of a chain stage.
//
// On the wire a service entry is either a bare string ("svc-a") or an
// object with a target ID and optional metadata. Both shapes normalize to
// this struct at ingress so downstream code sees one shape.
type ServiceRef struct {
	// TargetID is the logical service name resolved to a peer URL
	// by the [HostResolver].
	TargetID string `json:"targetId"`

	// Meta carries optional resolver metadata for this target.
	Meta map[string]any `json:"meta,omitempty"`
}

// UnmarshalJSON implements [json.Unmarshaler] accepting both the bare
// string and the object shape.
func (ref *ServiceRef) UnmarshalJSON(data []byte) error {
	var targetID string
	if err := json.Unmarshal(data, &targetID); err == nil {
		ref.TargetID = targetID
		ref.Meta = nil
		return nil
	}
	type plain ServiceRef
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*ref = ServiceRef(obj)
	return nil
}

// MarshalJSON implements [json.Marshaler] emitting the compact bare-string
// shape when there is no metadata.
func (ref ServiceRef) MarshalJSON() ([]byte, error) {
	if len(ref.Meta) <= 0 {
		return json.Marshal(ref.TargetID)
	}
	type plain ServiceRef
	return json.Marshal(plain(ref))
}

// StageConfig describes one position in a chain's ordered config.
type StageConfig struct {
	// Services is the non-empty ordered list of targets for this stage.
	// Only the first entry is addressed; additional entries are reserved
	// for fan-out and currently produce a warning.
	Services []ServiceRef `json:"services"`

	// Location says where this stage is materialized. The field is
	// stripped before the stage travels in a setup broadcast.
	Location Location `json:"location,omitempty"`
}

// ChainConfig is the ordered list of stage configs describing a logical
// pipeline. The stage index is the position in the list.
type ChainConfig []StageConfig

// ChainDescriptor is the chain portion of a [BroadcastSetupMessage]:
// the allocated chain ID plus the location-stripped remote stages.
type ChainDescriptor struct {
	ID     string        `json:"id"`
	Config []StageConfig `json:"config"`
}

// ChainDeployment reports the outcome of distributing a chain.
type ChainDeployment struct {
	// ChainID is the allocated chain identifier.
	ChainID string

	// NodeIDs has one entry per stage, in declared order: the local
	// node's ID for local stages, empty for remote or skipped stages.
	NodeIDs []string
}
