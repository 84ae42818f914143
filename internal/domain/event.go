package domain

// EventKind names a balance-affecting or lifecycle action.
type EventKind string

// Event kinds
const (
	EventTransfer        EventKind = "TRANSFER"
	EventSaleCreated     EventKind = "SALE_CREATED"
	EventDeposit         EventKind = "DEPOSIT"
	EventReferralAccrued EventKind = "REFERRAL_ACCRUED"
	EventFinalized       EventKind = "FINALIZED"
	EventFeePaid         EventKind = "FEE_PAID"
	EventLeftoverBurned  EventKind = "LEFTOVER_BURNED"
	EventTokensClaimed   EventKind = "TOKENS_CLAIMED"
	EventReferralClaimed EventKind = "REFERRAL_CLAIMED"
	EventRefunded        EventKind = "REFUNDED"
	EventOwnerReclaimed  EventKind = "OWNER_RECLAIMED"
	EventForceFailed     EventKind = "FORCE_FAILED"
	EventPairCreated     EventKind = "PAIR_CREATED"
	EventLiquidityAdded  EventKind = "LIQUIDITY_ADDED"
	EventLocked          EventKind = "LOCKED"
	EventLockIncreased   EventKind = "LOCK_INCREASED"
	EventLockExtended    EventKind = "LOCK_EXTENDED"
	EventLockSplit       EventKind = "LOCK_SPLIT"
	EventLockTransferred EventKind = "LOCK_TRANSFERRED"
	EventWithdrawn       EventKind = "WITHDRAWN"
	EventMigrated        EventKind = "MIGRATED"
)

// Event is an indexed record of a committed action.
// Corresponds to events table in PostgreSQL and ClickHouse.
type Event struct {
	ID           string    // PRIMARY KEY, base58(sha256(tx_seq|index|kind|contract))
	TxSeq        uint64    // ledger transaction number
	Index        int       // position within the transaction
	Kind         EventKind // see constants above
	Contract     string    // emitting program address
	Actor        string    // caller or sender
	Counterparty string    // recipient, referrer, new owner (may be empty)
	Asset        string    // asset moved (may be empty)
	Amount       string    // decimal integer string in base units (may be empty)
	Ref          string    // lock id, fee label or phase detail
	Timestamp    int64     // unix seconds at commit
}
