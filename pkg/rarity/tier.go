package rarity

import (
	"errors"
	"fmt"
	"math"
)

// Tier is a rarity category. Tiers are ordered: Common < Uncommon < Rare.
type Tier int

const (
	Common Tier = iota
	Uncommon
	Rare
)

// Tiers lists every tier from most to least frequent.
var Tiers = [...]Tier{Common, Uncommon, Rare}

func (t Tier) String() string {
	switch t {
	case Common:
		return "Common"
	case Uncommon:
		return "Uncommon"
	case Rare:
		return "Rare"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Thresholds are the leading-zero-bit boundaries between tiers. A hash with
// fewer than CommonBits leading zeros is Common, fewer than UncommonBits is
// Uncommon, and anything else is Rare.
type Thresholds struct {
	CommonBits   int
	UncommonBits int
}

// DefaultThresholds returns the 8/16 bit boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{CommonBits: 8, UncommonBits: 16}
}

// Validate rejects negative or inverted boundaries.
func (th Thresholds) Validate() error {
	var errs []error
	if th.CommonBits < 0 {
		errs = append(errs, fmt.Errorf("common_bits must be >= 0, got %d", th.CommonBits))
	}
	if th.UncommonBits < 0 {
		errs = append(errs, fmt.Errorf("uncommon_bits must be >= 0, got %d", th.UncommonBits))
	}
	if th.CommonBits > th.UncommonBits {
		errs = append(errs, fmt.Errorf("common_bits (%d) must not exceed uncommon_bits (%d)", th.CommonBits, th.UncommonBits))
	}
	return errors.Join(errs...)
}

// TierFor maps a leading-zero-bit count to its tier. Rare is open-ended.
func (th Thresholds) TierFor(zeros int) Tier {
	switch {
	case zeros < th.CommonBits:
		return Common
	case zeros < th.UncommonBits:
		return Uncommon
	default:
		return Rare
	}
}

// Expected returns the share of uniformly distributed hashes that fall into
// t: P(z >= k) = 2^-k, so each tier's share is a difference of two powers.
func (th Thresholds) Expected(t Tier) float64 {
	atLeast := func(bits int) float64 { return math.Ldexp(1, -bits) }
	switch t {
	case Common:
		return 1 - atLeast(th.CommonBits)
	case Uncommon:
		return atLeast(th.CommonBits) - atLeast(th.UncommonBits)
	case Rare:
		return atLeast(th.UncommonBits)
	default:
		return 0
	}
}
