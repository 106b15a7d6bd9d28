// Package types defines the record types tracked by the guardian subsystem:
// cross-chain relays and their fraud proofs, microchain state anchors and
// challenges, force exits, monitoring alerts and blacklist entries.
package types

import (
	"github.com/ipswyworld/ouroboros/shared/bytesutil"
	"github.com/ipswyworld/ouroboros/shared/hashutil"
)

// RelayStatus is the lifecycle state of a cross-chain relay.
type RelayStatus uint8

// Relay lifecycle states. Confirmed and Slashed are terminal.
const (
	RelayPending RelayStatus = iota
	RelayConfirmed
	RelaySlashed
)

func (s RelayStatus) String() string {
	switch s {
	case RelayPending:
		return "pending"
	case RelayConfirmed:
		return "confirmed"
	case RelaySlashed:
		return "slashed"
	default:
		return "unknown"
	}
}

// CrossChainMessage is a claim that value was locked on a source ledger and
// should be released on a destination ledger.
type CrossChainMessage struct {
	SourceChain      string
	DestinationChain string
	Sender           string
	Recipient        string
	Amount           uint64
	Nonce            uint64
	Timestamp        uint64
}

// Hash returns the deterministic content hash identifying the message. Every
// field participates, length-prefixed, so no two distinct messages collide.
func (m *CrossChainMessage) Hash() [32]byte {
	return hashutil.HashConcat(
		[]byte(m.SourceChain),
		[]byte(m.DestinationChain),
		[]byte(m.Sender),
		[]byte(m.Recipient),
		bytesutil.Bytes8(m.Amount),
		bytesutil.Bytes8(m.Nonce),
		bytesutil.Bytes8(m.Timestamp),
	)
}

// RelayRecord tracks one submitted cross-chain message.
type RelayRecord struct {
	MessageHash  [32]byte
	Message      *CrossChainMessage
	Relayer      string
	BondSnapshot uint64
	// Optional Merkle inclusion proof of the message in the source ledger,
	// sibling hashes from leaf to root, plus the leaf index.
	InclusionProof [][]byte
	ProofIndex     uint64
	Status         RelayStatus
	SubmittedAt    uint64
}

// FraudProofType enumerates the fraud claims a relay challenger may raise.
type FraudProofType uint8

// Relay fraud proof types.
const (
	MessageNotFound FraudProofType = iota
	InsufficientBalance
	InvalidMerkleProof
	DoubleRelay
)

func (t FraudProofType) String() string {
	switch t {
	case MessageNotFound:
		return "message_not_found"
	case InsufficientBalance:
		return "insufficient_balance"
	case InvalidMerkleProof:
		return "invalid_merkle_proof"
	case DoubleRelay:
		return "double_relay"
	default:
		return "unknown"
	}
}

// FraudProofRecord is the single fraud proof accepted against a pending relay.
type FraudProofRecord struct {
	MessageHash [32]byte
	Challenger  string
	Kind        FraudProofType
	Evidence    []byte
	SubmittedAt uint64
}

// AnchorStatus is the lifecycle state of a microchain state anchor.
type AnchorStatus uint8

// Anchor lifecycle states. Finalized and Reverted are terminal.
const (
	AnchorPending AnchorStatus = iota
	AnchorFinalized
	AnchorReverted
)

func (s AnchorStatus) String() string {
	switch s {
	case AnchorPending:
		return "pending"
	case AnchorFinalized:
		return "finalized"
	case AnchorReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// StateAnchorRecord is one (microchain, height, root) anchor attempt.
type StateAnchorRecord struct {
	AnchorHash        [32]byte
	MicrochainID      string
	StateRoot         [32]byte
	BlockHeight       uint64
	Operator          string
	OperatorSignature []byte
	Status            AnchorStatus
	SubmittedAt       uint64
}

// AnchorSigningRoot returns the hash an operator signs when anchoring state.
func AnchorSigningRoot(microchainID string, stateRoot [32]byte, blockHeight uint64) [32]byte {
	return hashutil.HashConcat(
		[]byte(microchainID),
		stateRoot[:],
		bytesutil.Bytes8(blockHeight),
	)
}

// Hash identifies an anchor attempt.
func (a *StateAnchorRecord) Hash() [32]byte {
	return AnchorSigningRoot(a.MicrochainID, a.StateRoot, a.BlockHeight)
}

// ChallengeType enumerates the claims a challenger may raise against an anchor.
type ChallengeType uint8

// Anchor challenge types.
const (
	InvalidStateTransition ChallengeType = iota
	UnauthorizedTransaction
	DoubleSpend
	InvalidSignature
	StateRootMismatch
)

func (t ChallengeType) String() string {
	switch t {
	case InvalidStateTransition:
		return "invalid_state_transition"
	case UnauthorizedTransaction:
		return "unauthorized_transaction"
	case DoubleSpend:
		return "double_spend"
	case InvalidSignature:
		return "invalid_signature"
	case StateRootMismatch:
		return "state_root_mismatch"
	default:
		return "unknown"
	}
}

// ChallengeOutcome is the resolution state of an anchor challenge.
type ChallengeOutcome uint8

// Challenge outcomes.
const (
	ChallengePending ChallengeOutcome = iota
	ChallengeAccepted
	ChallengeRejected
)

func (o ChallengeOutcome) String() string {
	switch o {
	case ChallengePending:
		return "pending"
	case ChallengeAccepted:
		return "accepted"
	case ChallengeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ChallengeRecord tracks one challenge opened against a pending anchor.
type ChallengeRecord struct {
	ID          string
	AnchorHash  [32]byte
	Challenger  string
	Kind        ChallengeType
	Evidence    *ChallengeEvidence
	Bond        uint64
	SubmittedAt uint64
	Outcome     ChallengeOutcome
}

// ExitStatus is the lifecycle state of a force exit request.
type ExitStatus uint8

// Force exit lifecycle states. Processed and Rejected are terminal.
const (
	ExitPending ExitStatus = iota
	ExitProcessed
	ExitRejected
)

func (s ExitStatus) String() string {
	switch s {
	case ExitPending:
		return "pending"
	case ExitProcessed:
		return "processed"
	case ExitRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ForceExitRequest is a user-initiated withdrawal bypassing an unresponsive
// microchain operator, proven against the last finalized state root.
type ForceExitRequest struct {
	ID           string
	MicrochainID string
	User         string
	Amount       uint64
	Nonce        uint64
	Proof        [][]byte
	LeafIndex    uint64
	StateRoot    [32]byte
	RequestedAt  uint64
	Status       ExitStatus
}

// ExitLeaf is the trie leaf committing to an amount owed to a user.
func ExitLeaf(user string, amount, nonce uint64) []byte {
	leaf := hashutil.HashConcat(
		[]byte(user),
		bytesutil.Bytes8(amount),
		bytesutil.Bytes8(nonce),
	)
	return leaf[:]
}

// FinalizedState is a microchain's latest finalized anchor pointer, advanced
// on every finalization and consulted by force exits.
type FinalizedState struct {
	MicrochainID string
	BlockHeight  uint64
	StateRoot    [32]byte
	AnchorHash   [32]byte
}

// Microchain is the registry record binding a microchain to its operator and
// the key anchors must be signed with.
type Microchain struct {
	ID           string
	Operator     string
	OperatorKey  []byte
	RegisteredAt uint64
}

// AlertSeverity grades monitoring alerts.
type AlertSeverity uint8

// Alert severities in ascending order.
const (
	SeverityLow AlertSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// AutoAction is the follow-up action a monitoring alert suggests to its caller.
type AutoAction uint8

// Suggested automatic actions.
const (
	ActionNone AutoAction = iota
	ActionPauseRelayer
	ActionSubmitFraudProof
	ActionIncreaseMonitoring
	ActionBlacklist
)

func (a AutoAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionPauseRelayer:
		return "pause_relayer"
	case ActionSubmitFraudProof:
		return "submit_fraud_proof"
	case ActionIncreaseMonitoring:
		return "increase_monitoring"
	case ActionBlacklist:
		return "blacklist"
	default:
		return "unknown"
	}
}

// Alert is a monitoring finding about an entity.
type Alert struct {
	ID          string
	Severity    AlertSeverity
	Kind        string
	Entity      string
	Description string
	Timestamp   uint64
	Action      AutoAction
}

// BlacklistEntry bars an entity from submitting relays and anchors.
type BlacklistEntry struct {
	Entity    string
	Reason    string
	Permanent bool
	CreatedAt uint64
}

// NonceEvent is one (nonce, timestamp) observation from the transaction
// submission path, fed to the fraud monitor.
type NonceEvent struct {
	Nonce     uint64
	Timestamp uint64
}
