package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransportError wraps any failure to obtain a usable response for a method:
// the node was unreachable, timed out, answered with a non-200 status, or
// returned an RPC error object.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ObjectResponse is a single entry of an object query. Data holds the raw
// object as returned by the node and is decoded by the caller against an
// explicit schema.
type ObjectResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// ObjectPage is one page of owned objects.
type ObjectPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// ObjectDataOptions selects which parts of an object the node includes.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType"`
	ShowContent bool `json:"showContent"`
	ShowOwner   bool `json:"showOwner"`
}

// OwnedObjectsQuery filters and shapes an owned objects query.
type OwnedObjectsQuery struct {
	Filter  *ObjectFilter      `json:"filter,omitempty"`
	Options *ObjectDataOptions `json:"options,omitempty"`
}

// ObjectFilter restricts owned objects to a fully qualified struct type.
type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

// EventID identifies an event by transaction digest and sequence.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is a module event as returned by the event log.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs"`
}

// Timestamp returns the event timestamp in milliseconds, or 0 when absent
// or unparsable.
func (e Event) Timestamp() uint64 {
	ts, err := strconv.ParseUint(e.TimestampMs, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// EventPage is one page of events.
type EventPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}

// EventQuery selects events from the log. Only one filter should be set.
type EventQuery struct {
	MoveModule    *MoveModuleFilter `json:"MoveModule,omitempty"`
	MoveEventType string            `json:"MoveEventType,omitempty"`
	Sender        string            `json:"Sender,omitempty"`
}

// MoveModuleFilter matches events emitted by one module of a package.
type MoveModuleFilter struct {
	Package string `json:"package"`
	Module  string `json:"module"`
}

// TransactionBlock is the subset of a transaction response this client uses.
type TransactionBlock struct {
	Digest      string              `json:"digest"`
	Effects     *TransactionEffects `json:"effects,omitempty"`
	TimestampMs string              `json:"timestampMs,omitempty"`
	Checkpoint  string              `json:"checkpoint,omitempty"`
}

// TransactionEffects carries the execution outcome.
type TransactionEffects struct {
	Status ExecutionStatus `json:"status"`
}

// ExecutionStatus is "success" or "failure" with an abort message.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the transaction executed successfully.
func (t *TransactionBlock) Succeeded() bool {
	return t != nil && t.Effects != nil && t.Effects.Status.Status == "success"
}

// Failure returns the abort message of a failed transaction.
func (t *TransactionBlock) Failure() string {
	if t == nil || t.Effects == nil {
		return "missing transaction effects"
	}
	if t.Effects.Status.Error != "" {
		return t.Effects.Status.Error
	}
	return t.Effects.Status.Status
}
