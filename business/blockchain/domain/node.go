// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// NodeStatus is a point-in-time view of the Ethereum node.
type NodeStatus struct {
	IsConnected  bool      `json:"is_connected"`
	IsSyncing    bool      `json:"is_syncing"`
	CurrentBlock uint64    `json:"current_block"`
	HighestBlock uint64    `json:"highest_block"`
	PeerCount    uint64    `json:"peer_count"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Ready reports whether orders may be settled through the node.
func (s NodeStatus) Ready() bool {
	return s.IsConnected && !s.IsSyncing
}

// Disconnected returns the status reported when the node cannot be reached.
func Disconnected(at time.Time) NodeStatus {
	return NodeStatus{CheckedAt: at}
}
