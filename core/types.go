// Package core holds the data model shared by every layer of the
// federation core: peer identifiers, epoch indices, consensus items and
// signed epoch outcomes.
package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// PeerID identifies one federation member. The zero value is a valid peer.
type PeerID uint16

// Less defines the total order over PeerID.
func (p PeerID) Less(o PeerID) bool { return p < o }

func (p PeerID) String() string { return fmt.Sprintf("peer-%d", uint16(p)) }

// EpochIndex identifies one round of the atomic-broadcast protocol.
type EpochIndex uint64

// ModuleInstanceID addresses one configured copy of a module, stable for
// the federation's lifetime.
type ModuleInstanceID uint16

func (id ModuleInstanceID) String() string { return fmt.Sprintf("%d", uint16(id)) }

// ModuleKind names a module implementation, e.g. "mint", "wallet", "ln".
type ModuleKind string

// ItemKind tags the variant carried by a ConsensusItem.
type ItemKind uint8

const (
	// ItemTransaction carries a user-submitted transaction.
	ItemTransaction ItemKind = iota
	// ItemModule carries a module-proposed consensus record.
	ItemModule
	// ItemEpochInfo carries engine-internal epoch bookkeeping, never
	// produced by modules or clients.
	ItemEpochInfo
)

func (k ItemKind) String() string {
	switch k {
	case ItemTransaction:
		return "transaction"
	case ItemModule:
		return "module"
	case ItemEpochInfo:
		return "epoch_info"
	default:
		return "unknown"
	}
}

// ConsensusItem is a unit of work that must be agreed upon before being
// applied. It is opaque to the engine except for Kind and ModuleInstanceID,
// which route application.
type ConsensusItem struct {
	Kind ItemKind `json:"kind"`
	// ModuleInstanceID is meaningful only when Kind == ItemModule.
	ModuleInstanceID ModuleInstanceID `json:"module_instance_id,omitempty"`
	// Payload is the module- or transaction-defined wire encoding.
	Payload []byte `json:"payload"`
}

// TransactionItem constructs a ConsensusItem carrying a user transaction.
func TransactionItem(tx []byte) ConsensusItem {
	return ConsensusItem{Kind: ItemTransaction, Payload: tx}
}

// ModuleItem constructs a ConsensusItem carrying a module proposal.
func ModuleItem(id ModuleInstanceID, payload []byte) ConsensusItem {
	return ConsensusItem{Kind: ItemModule, ModuleInstanceID: id, Payload: payload}
}

// Hash returns a deterministic content hash of the item. The engine does
// not deduplicate by it: duplicate items are both applied, and modules are
// responsible for their own idempotence.
func (c ConsensusItem) Hash() [32]byte {
	b, _ := c.MarshalBinary()
	return sha256.Sum256(b)
}

// MarshalBinary gives ConsensusItem a deterministic, byte-stable wire
// encoding: serializing then deserializing yields byte-equal output.
func (c ConsensusItem) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (c *ConsensusItem) UnmarshalBinary(b []byte) error {
	return json.Unmarshal(b, c)
}

// Equal reports whether two items are byte-identical.
func (c ConsensusItem) Equal(o ConsensusItem) bool {
	if c.Kind != o.Kind || c.ModuleInstanceID != o.ModuleInstanceID {
		return false
	}
	return bytes.Equal(c.Payload, o.Payload)
}

// ThresholdSignature is an opaque signature produced only when at least t of
// n signing keys cooperate; verifiable against a single aggregate public key.
// The concrete cryptography is supplied by a Keychain implementation — this
// type is just the wire container the engine and clients pass around.
type ThresholdSignature []byte

// OrderedItem pairs a ConsensusItem with the peer that proposed it, in the
// fixed order a SignedEpochOutcome declares.
type OrderedItem struct {
	Peer PeerID        `json:"peer"`
	Item ConsensusItem `json:"item"`
}

// SignedEpochOutcome is the atomic unit produced by the broadcast layer.
type SignedEpochOutcome struct {
	Epoch EpochIndex         `json:"epoch"`
	Items []OrderedItem      `json:"items"`
	Sig   ThresholdSignature `json:"sig"`
}

// SigningPayload returns the bytes the threshold signature is computed over:
// everything except the signature itself, so verification and signing agree
// on what was signed.
func (o SignedEpochOutcome) SigningPayload() ([]byte, error) {
	cp := o
	cp.Sig = nil
	return json.Marshal(cp)
}
