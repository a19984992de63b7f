package domain

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestNodeStatus_Ready(t *testing.T) {
	tests := []struct {
		name   string
		status NodeStatus
		want   bool
	}{
		{name: "connected_synced", status: NodeStatus{IsConnected: true}, want: true},
		{name: "connected_syncing", status: NodeStatus{IsConnected: true, IsSyncing: true}, want: false},
		{name: "disconnected", status: Disconnected(time.Now()), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeStatus_JSON(t *testing.T) {
	s := NodeStatus{
		IsConnected:  true,
		IsSyncing:    false,
		CurrentBlock: 120,
		HighestBlock: 120,
		PeerCount:    8,
		CheckedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"is_connected":true`, `"is_syncing":false`, `"current_block":120`, `"peer_count":8`, `"checked_at":"2024-01-02T03:04:05Z"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("json %s missing %s", data, key)
		}
	}
}

func TestGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(20_000_000_000)) // 20 gwei
	if price.Gwei() != 20 {
		t.Errorf("Gwei = %v", price.Gwei())
	}

	est := NewGasEstimate(21000, price)
	if est.TotalWei.String() != "420000000000000" {
		t.Errorf("TotalWei = %s", est.TotalWei)
	}
	if est.TotalGwei() != 420000 {
		t.Errorf("TotalGwei = %v", est.TotalGwei())
	}
}
