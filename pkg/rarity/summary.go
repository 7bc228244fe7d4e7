package rarity

// Summary holds the tier counts of one classification pass. Total always
// equals Common + Uncommon + Rare.
type Summary struct {
	Total    uint64 `json:"total"`
	Common   uint64 `json:"common"`
	Uncommon uint64 `json:"uncommon"`
	Rare     uint64 `json:"rare"`
}

// Count returns the number of hashes classified as t.
func (s Summary) Count(t Tier) uint64 {
	switch t {
	case Common:
		return s.Common
	case Uncommon:
		return s.Uncommon
	case Rare:
		return s.Rare
	default:
		return 0
	}
}

// Share returns the observed fraction of hashes in t, or 0 for an empty
// summary.
func (s Summary) Share(t Tier) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Count(t)) / float64(s.Total)
}

// Merge adds two summaries. Tier counts are commutative and associative under
// addition, so partial summaries from independent workers combine in any
// order.
func (s Summary) Merge(o Summary) Summary {
	return Summary{
		Total:    s.Total + o.Total,
		Common:   s.Common + o.Common,
		Uncommon: s.Uncommon + o.Uncommon,
		Rare:     s.Rare + o.Rare,
	}
}

func (s *Summary) add(t Tier) {
	s.Total++
	switch t {
	case Common:
		s.Common++
	case Uncommon:
		s.Uncommon++
	case Rare:
		s.Rare++
	}
}
