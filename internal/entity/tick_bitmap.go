package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ticksPerWord is the number of tick bits packed into one bitmap word.
const ticksPerWord = 64

// TickBitmap marks which ticks of a pool currently bound non-zero gross
// liquidity, one bit per integer tick. The tick space is partitioned into
// 64-bit words keyed by word index; words with no set bits are not stored,
// so the map stays sparse over the full signed tick range.
type TickBitmap struct {
	Pair      string           `json:"pair"`
	Words     map[int32]uint64 `json:"words"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewTickBitmap creates an empty bitmap for a pool pair.
func NewTickBitmap(pair string, now time.Time) *TickBitmap {
	return &TickBitmap{
		Pair:      pair,
		Words:     make(map[int32]uint64),
		UpdatedAt: now,
	}
}

// wordAndBit splits a tick index into word index and bit position.
// Arithmetic shift floors toward negative infinity, and masking a negative
// tick still yields a bit position in [0, 63], so negative ticks land in
// negative word indices with the same in-word ordering as positive ones.
func wordAndBit(tick int32) (int32, uint) {
	word := tick >> 6
	bit := uint(tick & (ticksPerWord - 1))
	return word, bit
}

// IsSet reports whether the tick's bit is set.
func (b *TickBitmap) IsSet(tick int32) bool {
	word, bit := wordAndBit(tick)
	return b.Words[word]&(1<<bit) != 0
}

// Flip updates the tick's bit when gross liquidity crosses the zero
// boundary in either direction. Equal-sign transitions (0->0 or
// positive->positive) never flip. Returns whether the stored bitmap
// representation changed, which callers use to decide re-persistence.
func (b *TickBitmap) Flip(tick int32, grossBefore, grossAfter decimal.Decimal) bool {
	hadLiquidity := grossBefore.IsPositive()
	hasLiquidity := grossAfter.IsPositive()
	if hadLiquidity == hasLiquidity {
		return false
	}

	word, bit := wordAndBit(tick)
	old := b.Words[word]

	var updated uint64
	if hasLiquidity {
		updated = old | (1 << bit)
	} else {
		updated = old &^ (1 << bit)
	}

	if updated == old {
		return false
	}

	if updated == 0 {
		delete(b.Words, word)
	} else {
		b.Words[word] = updated
	}
	return true
}

// SetBits returns the number of initialized ticks.
func (b *TickBitmap) SetBits() int {
	n := 0
	for _, w := range b.Words {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to mutate while readers still hold the
// original.
func (b *TickBitmap) Clone() *TickBitmap {
	c := *b
	c.Words = make(map[int32]uint64, len(b.Words))
	for k, v := range b.Words {
		c.Words[k] = v
	}
	return &c
}
