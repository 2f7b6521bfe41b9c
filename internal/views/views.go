// Package views holds the pure transforms that turn fetched contract values into
// display-ready numbers. Nothing here performs I/O and every function is deterministic.
package views

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// Placeholder is rendered when a derived value is undefined.
const Placeholder = "—"

const (
	MinRoundDurationSeconds = 3600
	secondsPerDay           = 86400
)

// AverageMatch is matchingPool / totalContributions. ok is false when the ratio is undefined.
func AverageMatch(matchingPool, totalContributions *big.Int) (ratio float64, ok bool) {
	if matchingPool == nil || totalContributions == nil || totalContributions.Sign() <= 0 {
		return 0, false
	}
	ratio, _ = new(big.Rat).SetFrac(matchingPool, totalContributions).Float64()
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, false
	}
	return ratio, true
}

func FormatAverageMatch(matchingPool, totalContributions *big.Int) string {
	ratio, ok := AverageMatch(matchingPool, totalContributions)
	if !ok {
		return Placeholder
	}
	return fmt.Sprintf("%.1fx", ratio)
}

// RoundShare is a project's rounded percentage of the round total, always within [0,100].
func RoundShare(raised, total *big.Int) int {
	if raised == nil || total == nil || total.Sign() <= 0 || raised.Sign() <= 0 {
		return 0
	}

	// round-half-up of 100*raised/total == (200*raised + total) / (2*total)
	num := new(big.Int).Mul(raised, big.NewInt(200))
	num.Add(num, total)
	den := new(big.Int).Mul(total, big.NewInt(2))
	share := num.Quo(num, den)

	if share.Cmp(big.NewInt(100)) > 0 {
		return 100
	}
	return int(share.Int64())
}

// Remaining is the whole-unit decomposition of the time left in a round.
type Remaining struct {
	Ended   bool  `json:"ended"`
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	// Millis is the undecomposed difference, zero once ended.
	Millis int64 `json:"millis"`
}

// TimeRemaining computes end*1000 - now and truncates toward zero at each unit.
func TimeRemaining(endSeconds int64, now time.Time) Remaining {
	diff := endSeconds*1000 - now.UnixMilli()
	if diff <= 0 {
		return Remaining{Ended: true}
	}

	const (
		minute = int64(60 * 1000)
		hour   = 60 * minute
		day    = 24 * hour
	)

	return Remaining{
		Days:    diff / day,
		Hours:   (diff % day) / hour,
		Minutes: (diff % hour) / minute,
		Millis:  diff,
	}
}

func (r Remaining) String() string {
	if r.Ended {
		return "ended"
	}
	return fmt.Sprintf("%dd %dh %dm", r.Days, r.Hours, r.Minutes)
}

// FormatCooldown renders the coarsest applicable units of a remaining cooldown.
func FormatCooldown(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	days := seconds / secondsPerDay
	hours := (seconds % secondsPerDay) / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// RoundDurationSeconds converts an owner-entered day count into a createRound duration.
// Unparsable or non-positive input falls back to the one hour minimum.
func RoundDurationSeconds(days string) int64 {
	f, ok := new(big.Float).SetString(strings.TrimSpace(days))
	if !ok {
		return MinRoundDurationSeconds
	}
	numeric, _ := f.Float64()
	if math.IsNaN(numeric) || math.IsInf(numeric, 0) || numeric <= 0 {
		return MinRoundDurationSeconds
	}

	seconds := math.Floor(numeric * secondsPerDay)
	if seconds > math.MaxInt64/2 {
		seconds = math.MaxInt64 / 2
	}
	if int64(seconds) < MinRoundDurationSeconds {
		return MinRoundDurationSeconds
	}
	return int64(seconds)
}
