package burnindex

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CallContext describes the invocation a burn runs in. Caller must be derived
// from the authenticated invoker, never from caller-supplied arguments.
type CallContext interface {
	// Caller returns the stable identity of the invoker
	Caller() string
	// TransferredAmount returns the value attached to the call, in smallest units
	TransferredAmount() uint64
}

// StaticCall is a CallContext with fixed fields, for callers that have
// already authenticated the invoker.
type StaticCall struct {
	From   string
	Amount uint64
}

func (c StaticCall) Caller() string            { return c.From }
func (c StaticCall) TransferredAmount() uint64 { return c.Amount }

// BurnEvent is the informational record emitted for each committed burn.
type BurnEvent struct {
	SequenceID uint64
	Burner     string
	Amount     uint64
}

func (e BurnEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("sequence_id", e.SequenceID)
	enc.AddString("burner", e.Burner)
	enc.AddUint64("amount", e.Amount)
	enc.AddString("amount_display", FormatAmount(e.Amount))
	return nil
}

// Burner records burns in a KVStore and answers history and leaderboard
// queries over them. It is the only writer of the burn key families.
type Burner struct {
	store       KVStore
	sink        ValueSink
	sinkAddress string
	cache       *TotalCache
	logger      *zap.Logger
	metrics     *Metrics

	// mu serializes Burn and Initialize so each is one isolated transaction
	// even on engines that allow concurrent writers.
	mu sync.Mutex
}

// NewBurner creates a Burner over store that sends burned value to sink.
func NewBurner(store KVStore, sink ValueSink) *Burner {
	return &Burner{
		store:       store,
		sink:        sink,
		sinkAddress: DefaultSinkAddress,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for the burner
func (b *Burner) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.logger = logger
}

// SetMetrics attaches m; nil disables metrics.
func (b *Burner) SetMetrics(m *Metrics) {
	b.metrics = m
}

// SetSinkAddress overrides DefaultSinkAddress.
func (b *Burner) SetSinkAddress(addr string) {
	b.sinkAddress = addr
}

// SetCache attaches a total cache consulted by AddressBurned.
func (b *Burner) SetCache(c *TotalCache) {
	b.cache = c
}

// Store returns the underlying store.
func (b *Burner) Store() KVStore {
	return b.store
}

// Initialize writes BurnCounter=0 and TotalBurned=0. It runs once per store;
// later calls fail with ErrAlreadyInitialized and change nothing.
func (b *Burner) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.store.Update(func(w KVWriter) error {
		exists, err := w.Has(counterKey())
		if err != nil {
			return errors.Wrap(err, "failed to probe burn counter")
		}
		if exists {
			return ErrAlreadyInitialized
		}
		if err := w.Set(counterKey(), EncodeUint64(0)); err != nil {
			return errors.Wrap(err, "failed to store burn counter")
		}
		if err := w.Set(totalKey(), EncodeUint64(0)); err != nil {
			return errors.Wrap(err, "failed to store total burned")
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Info("Burn ledger initialized", zap.String("store", b.store.Name()))
	return nil
}

// IsInitialized reports whether Initialize has run against the store.
func (b *Burner) IsInitialized() (bool, error) {
	var ok bool
	err := b.store.View(func(r KVReader) error {
		var err error
		ok, err = r.Has(counterKey())
		return err
	})
	return ok, err
}

// Burn records the value attached to call as destroyed by its caller and
// returns the burn's sequence ID. Every write, and the sink transfer, happens
// in one store transaction: on any error nothing is visible.
func (b *Burner) Burn(ctx context.Context, call CallContext) (uint64, error) {
	burner := call.Caller()
	amount := call.TransferredAmount()
	if amount == 0 {
		b.metrics.observeFailure(ErrZeroAmount)
		return 0, ErrZeroAmount
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var seq, prev, next uint64
	err := b.store.Update(func(w KVWriter) error {
		lg := ledger{rw: w}
		var err error
		if seq, err = lg.nextSequenceID(); err != nil {
			return err
		}
		if err = lg.recordHistory(seq, burner, amount); err != nil {
			return err
		}
		if _, err = lg.addToTotal(amount); err != nil {
			return err
		}
		if prev, next, err = (rankedIndex{rw: w}).applyDelta(burner, amount); err != nil {
			return err
		}
		if err = b.sink.TransferValue(ctx, amount, b.sinkAddress); err != nil {
			return errors.Mark(
				errors.Wrapf(err, "failed to transfer %d to %s", amount, b.sinkAddress),
				errSinkTransfer)
		}
		return nil
	})
	if err != nil {
		b.metrics.observeFailure(err)
		b.logger.Warn("Burn aborted",
			zap.String("burner", burner),
			zap.Uint64("amount", amount),
			zap.Error(err))
		return 0, err
	}

	b.cache.Set(burner, seq, next)
	b.metrics.observeBurn(amount, prev > 0)
	b.logger.Info("Burn", zap.Object("event", BurnEvent{SequenceID: seq, Burner: burner, Amount: amount}))
	return seq, nil
}
