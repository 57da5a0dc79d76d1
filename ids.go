// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewNodeID returns a UUIDv7 identifying a freshly created [Node].
//
// UUIDv7 identifiers are time-ordered, which keeps node listings and log
// correlation stable across a supervisor's lifetime. IDs are never reused.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewNodeID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}

// NewChainID returns a chain identifier of the form
// <uid>-<unix-ms>-<8-hex>, where uid is the initiator's configured
// identity and the suffix carries 32 bits of randomness.
//
// The identifier is globally unique across the fabric within reasonable
// time: collisions require the same initiator, the same millisecond, and a
// 2^-32 random match.
func NewChainID(uid string, timeNow func() time.Time) string {
	entropy := runtimex.PanicOnError1(uuid.NewRandom())
	return fmt.Sprintf("%s-%d-%s", uid, timeNow().UnixMilli(), hex.EncodeToString(entropy[:4]))
}
