package ledgerfeed

import (
	"fmt"
	"time"

	"github.com/haileyok/ledgerfeed/ledger"
)

const (
	NetworkDevnet  = "devnet"
	NetworkTestnet = "testnet"
	NetworkMainnet = "mainnet"
)

// TestnetPackageID is the deployed social_media package on testnet.
const TestnetPackageID = "0x7f453c53da60b42eaa1554ec3c1637937832e8d4d9558a1f16bc3ccba03f4866"

var networkRPCURLs = map[string]string{
	NetworkDevnet:  "https://api.devnet.iota.cafe",
	NetworkTestnet: "https://api.testnet.iota.cafe",
	NetworkMainnet: "https://api.mainnet.iota.cafe",
}

var networkPackageIDs = map[string]string{
	NetworkTestnet: TestnetPackageID,
}

// Config is fixed for the lifetime of a session. Components receive a copy
// at construction and never read package state.
type Config struct {
	Network   string
	RPCURL    string
	PackageID string
	Module    string
	// ClockObjectID is the shared clock passed to entry points that stamp
	// created_at.
	ClockObjectID string
	// EventIDField is the parsed event payload field holding the object id.
	EventIDField string

	// SettleDelay is waited after finality before caches are refetched, to
	// absorb read-after-write lag in the query layer.
	SettleDelay  time.Duration
	PollInterval time.Duration
	FeedLimit    int
	PollLimit    int
	// FetchBatchSize caps ids per multi-get request.
	FetchBatchSize    int
	RequestsPerSecond int
	SearchLimit       int
}

func DefaultConfig(network string) Config {
	return Config{
		Network:           network,
		RPCURL:            networkRPCURLs[network],
		PackageID:         networkPackageIDs[network],
		Module:            "social_media",
		ClockObjectID:     "0x6",
		EventIDField:      "id",
		SettleDelay:       1 * time.Second,
		PollInterval:      5 * time.Second,
		FeedLimit:         50,
		PollLimit:         5,
		FetchBatchSize:    ledger.MaxMultiGetObjects,
		RequestsPerSecond: 10,
		SearchLimit:       5,
	}
}

func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("no rpc url configured for network %q", c.Network)
	}
	if c.PackageID == "" {
		return fmt.Errorf("no package id configured for network %q", c.Network)
	}
	if c.Module == "" {
		return fmt.Errorf("module required")
	}
	if c.FetchBatchSize <= 0 || c.FetchBatchSize > ledger.MaxMultiGetObjects {
		return fmt.Errorf("fetch batch size must be in 1..%d", ledger.MaxMultiGetObjects)
	}
	if c.FeedLimit <= 0 || c.PollLimit <= 0 {
		return fmt.Errorf("feed and poll limits must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative")
	}
	return nil
}

// StructType returns the fully qualified type of a struct in the module.
func (c Config) StructType(name string) string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, c.Module, name)
}

func (c Config) eventQuery() ledger.EventQuery {
	return ledger.EventQuery{
		MoveModule: &ledger.MoveModuleFilter{
			Package: c.PackageID,
			Module:  c.Module,
		},
	}
}
