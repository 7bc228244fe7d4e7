package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/odvcencio/hashrarity/pkg/rarity"
)

type rarestRow struct {
	Hash  string `json:"hash"`
	Kind  string `json:"kind,omitempty"`
	Zeros int    `json:"leading_zero_bits"`
	Tier  string `json:"tier"`
}

// objectRow is one line of the --all listing.
type objectRow struct {
	Hash  string `json:"hash"`
	Zeros int    `json:"leading_zero_bits"`
	Tier  string `json:"tier"`
}

type report struct {
	Repositories []string
	Thresholds   rarity.Thresholds
	Summary      rarity.Summary
	Rarest       []rarestRow
	Objects      []objectRow
	Elapsed      time.Duration
	Partial      bool
}

func (r report) writeText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "tier\tobjects\tshare\texpected\t")
	for _, t := range rarity.Tiers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			t,
			humanize.Comma(int64(r.Summary.Count(t))),
			percent(r.Summary.Share(t)),
			percent(r.Thresholds.Expected(t)),
		)
	}
	fmt.Fprintf(tw, "total\t%s\t\t\t\n", humanize.Comma(int64(r.Summary.Total)))
	_ = tw.Flush()

	if len(r.Rarest) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "rarest objects:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, row := range r.Rarest {
			kind := row.Kind
			if kind == "" {
				kind = "?"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d bits\t%s\n", row.Hash, kind, row.Zeros, row.Tier)
		}
		_ = tw.Flush()
	}

	fmt.Fprintln(w)
	status := "scanned"
	if r.Partial {
		status = "partially scanned"
	}
	fmt.Fprintf(w, "%s %s object(s) in %s\n", status, humanize.Comma(int64(r.Summary.Total)), r.Elapsed.Round(time.Millisecond))
}

// percent formats very small expected shares with enough precision to stay
// non-zero.
func percent(f float64) string {
	switch {
	case f == 0:
		return "0%"
	case f < 0.0001:
		return fmt.Sprintf("%.4g%%", f*100)
	default:
		return fmt.Sprintf("%.2f%%", f*100)
	}
}

type jsonThresholds struct {
	CommonBits   int `json:"common_bits"`
	UncommonBits int `json:"uncommon_bits"`
}

type jsonReport struct {
	Repositories []string       `json:"repositories"`
	Thresholds   jsonThresholds `json:"thresholds"`
	Summary      rarity.Summary `json:"summary"`
	Rarest       []rarestRow    `json:"rarest,omitempty"`
	Objects      []objectRow    `json:"objects,omitempty"`
	ElapsedMS    int64          `json:"elapsed_ms"`
	Partial      bool           `json:"partial,omitempty"`
}

func (r report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Repositories: r.Repositories,
		Thresholds: jsonThresholds{
			CommonBits:   r.Thresholds.CommonBits,
			UncommonBits: r.Thresholds.UncommonBits,
		},
		Summary:   r.Summary,
		Rarest:    r.Rarest,
		Objects:   r.Objects,
		ElapsedMS: r.Elapsed.Milliseconds(),
		Partial:   r.Partial,
	})
}
