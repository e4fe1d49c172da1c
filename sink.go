package burnindex

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

//go:generate mockgen -source=sink.go -destination=sink_mocks.go -package=burnindex

// DefaultSinkAddress is the null address burned value is sent to. Nothing can
// spend from it.
const DefaultSinkAddress = "AU1111111111111111111111111111111112m1s9K"

// errSinkTransfer marks a failed value transfer so it can be told apart from
// store failures.
var errSinkTransfer = errors.New("sink transfer failed")

// ValueSink moves value out of the holding context into an irrecoverable
// sink. A failed transfer aborts the burn that requested it.
type ValueSink interface {
	TransferValue(ctx context.Context, amount uint64, sinkAddress string) error
}

// HoldingSink is an in-process ValueSink. Callers Deposit value as they
// attach it to a burn; transfers draw from the held balance and accumulate
// per sink address.
type HoldingSink struct {
	mu      sync.Mutex
	balance uint64
	burned  map[string]uint64
}

// NewHoldingSink returns a HoldingSink with nothing held.
func NewHoldingSink() *HoldingSink {
	return &HoldingSink{burned: make(map[string]uint64)}
}

// Deposit adds amount to the held balance.
func (s *HoldingSink) Deposit(amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += amount
}

// Balance returns the value currently held.
func (s *HoldingSink) Balance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Burned returns everything transferred to sinkAddress so far.
func (s *HoldingSink) Burned(sinkAddress string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.burned[sinkAddress]
}

func (s *HoldingSink) TransferValue(ctx context.Context, amount uint64, sinkAddress string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance < amount {
		return errors.Wrapf(ErrInsufficientBalance, "holding %d, transfer needs %d", s.balance, amount)
	}
	s.balance -= amount
	s.burned[sinkAddress] += amount
	return nil
}
