package ledgerfeed

import (
	"context"
	"io"

	"github.com/haileyok/ledgerfeed/ledger"
	"github.com/haileyok/ledgerfeed/pinning"
)

// Ledger is the read and finality surface of the node. *ledger.Client
// implements it.
type Ledger interface {
	GetOwnedObjects(ctx context.Context, owner, structType string) ([]ledger.ObjectResponse, error)
	MultiGetObjects(ctx context.Context, ids []string) ([]ledger.ObjectResponse, error)
	QueryEvents(ctx context.Context, query ledger.EventQuery, limit int, descending bool) ([]ledger.Event, error)
	WaitForTransaction(ctx context.Context, digest string) (*ledger.TransactionBlock, error)
}

// Wallet signs and executes a call on behalf of the connected account and
// returns the transaction digest.
type Wallet interface {
	Address() string
	SignAndExecute(ctx context.Context, call *ledger.MoveCall) (string, error)
}

// Pinner stores a binary payload and returns its content identifier.
type Pinner interface {
	Pin(ctx context.Context, name string, r io.Reader) (string, error)
}

var _ Ledger = (*ledger.Client)(nil)
var _ Pinner = (*pinning.Client)(nil)
