package burnindex

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"

	"github.com/mr-tron/base58"
)

// BurnDistribution shapes a generated burn workload. A small set of hot
// burners makes most of the burns, the way a few whales dominate a real
// leaderboard.
type BurnDistribution struct {
	Burners   int     // distinct burner identities in the pool
	HotRatio  float64 // fraction of the pool that is hot
	HotShare  float64 // fraction of burns made by hot burners
	MinAmount uint64  // smallest burn, in smallest units
	MaxAmount uint64  // largest burn, in smallest units
}

// DefaultBurnDistribution returns a 64-burner pool where 10% of burners make
// 70% of the burns, each between 0.001 and 5 display units.
func DefaultBurnDistribution() BurnDistribution {
	return BurnDistribution{
		Burners:   64,
		HotRatio:  0.10,
		HotShare:  0.70,
		MinAmount: 1_000_000,
		MaxAmount: 5_000_000_000,
	}
}

// GenerateBurnWorkload creates a deterministic sequence of count burns drawn
// from dist. The same seed always yields the same calls.
func GenerateBurnWorkload(count int, seed int64, dist BurnDistribution) []StaticCall {
	if count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))

	pool := dist.Burners
	if pool <= 0 {
		pool = 1
	}
	burners := make([]string, pool)
	for i := range burners {
		burners[i] = GenerateBurnerAddress(rng)
	}
	hot := int(float64(pool) * dist.HotRatio)
	if hot < 1 {
		hot = 1
	}
	if hot > pool {
		hot = pool
	}

	lo, hi := dist.MinAmount, dist.MaxAmount
	if lo == 0 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}

	calls := make([]StaticCall, 0, count)
	for i := 0; i < count; i++ {
		var who string
		if hot == pool || rng.Float64() < dist.HotShare {
			who = burners[rng.Intn(hot)]
		} else {
			who = burners[hot+rng.Intn(pool-hot)]
		}
		amount := lo
		if span := hi - lo; span > 0 {
			amount += rng.Uint64() % (span + 1)
		}
		calls = append(calls, StaticCall{From: who, Amount: amount})
	}
	return calls
}

// GenerateBurnerAddress creates a user address in the base58 "AU" form used
// by the sink address.
func GenerateBurnerAddress(rng *rand.Rand) string {
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], rng.Uint64())
	digest := sha256.Sum256(seed[:])
	return "AU" + base58.Encode(digest[:])
}

// ExpectedTotals folds calls into the per-burner totals a store should hold
// after burning all of them.
func ExpectedTotals(calls []StaticCall) map[string]uint64 {
	totals := make(map[string]uint64)
	for _, c := range calls {
		totals[c.From] += c.Amount
	}
	return totals
}

// SumAmounts returns the total of every call's amount.
func SumAmounts(calls []StaticCall) uint64 {
	var sum uint64
	for _, c := range calls {
		sum += c.Amount
	}
	return sum
}
