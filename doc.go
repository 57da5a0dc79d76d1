// SPDX-License-Identifier: GPL-3.0-or-later

// Package dpcp implements a federated pipeline supervisor: a control plane
// that builds and operates multi-stage data-processing chains whose stages
// may live on the local host or on remote peer supervisors reachable over
// HTTP POST.
//
// # Core Abstraction
//
// The package is built around a single interface:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// Each Func represents an operation with exactly one success mode and one
// failure mode. [Processor] is the payload-level specialization
// (Func[any, any]) applied in order within a [Node]'s pipeline. Funcs
// compose via [Compose2] through [Compose5], where the compiler verifies
// that outputs match inputs across stages.
//
// # Available Components
//
// Chain execution:
//   - [Node]: ordered sequence of Processors with a status machine,
//     per-execution delay, dependencies, and downstream hand-off
//   - [Supervisor]: process-wide owner of all Nodes; dispatches
//     [SupervisorPayload] signals, distributes chains, and routes data
//   - [NodeMonitoring]: per-supervisor aggregate of node statuses
//
// Federation:
//   - [MonitoringAgent]: chain → monitoring-host registry plus per-chain
//     aggregate state on the monitoring peer
//   - [NewConnectorHandler]: HTTP ingress for setup, run, and notify
//     messages arriving from peer supervisors
//   - [ServiceRegistry]: target-ID → processor-pipeline factories consulted
//     when a setup broadcast materializes nodes on this peer
//
// Resolution and transport:
//   - [HostResolver]: target service ID → peer base URL ([StaticHostResolver],
//     [SRVHostResolver], or any [HostResolverFunc])
//   - [MonitoringResolver]: chain ID → monitoring peer base URL
//   - [Poster]: the HTTP POST primitive ([HTTPPoster] retries transient
//     failures with exponential backoff)
//
// # Ownership
//
// A Supervisor exclusively owns its nodes map; a MonitoringAgent exclusively
// owns the chain → monitoring-host map. Both are constructed explicitly at
// process start and passed by reference; there is no hidden global lookup.
// Callbacks installed on a Supervisor capture it by non-owning reference and
// are set once before the first dispatch.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible with
// [log/slog]). By default, logging is disabled. Set a custom [*slog.Logger]
// to enable it.
//
// Components emit span events (*Start/*Done pairs) recording operation
// lifecycle, timing, and success/failure. Completion events include t0
// (start time), err, and errClass. Per-processor events are emitted at
// [slog.LevelDebug]; lifecycle and wire events use [slog.LevelInfo].
// Error classification is configurable via [ErrClassifier]; the default
// uses errclass.
//
// # Timeout and Context Philosophy
//
// This package is context-transparent: operations never modify the context
// they receive. The caller controls timeouts externally via
// [context.WithTimeout] or [context.WithDeadline]. Node execution delays
// and HTTP POSTs are suspension points that respect context cancellation.
//
// # Design Boundaries
//
// This package intentionally excludes concerns owned by the embedding
// connector process:
//
//   - Process bootstrap, CLI argument parsing, port binding
//   - Authentication of peers
//   - Persistent storage of chains (all state is in-memory)
//   - Exactly-once delivery (hand-off failures surface to the caller;
//     the payload is not redelivered)
package dpcp
