// Package tier resolves a member's commission rate bracket from their
// lifetime paid-referral count.
package tier

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
)

// Tier is a resolved rate bracket.
type Tier struct {
	Name         string  `json:"name"`
	MinReferrals int     `json:"min_referrals"`
	MemberRate   float64 `json:"member_rate"`
}

// Progress describes how far a member is from the next bracket. Next fields
// are nil once the top bracket is reached.
type Progress struct {
	Current          Tier     `json:"current"`
	NextName         *string  `json:"next_name,omitempty"`
	NextThreshold    *int     `json:"next_threshold,omitempty"`
	NextRate         *float64 `json:"next_rate,omitempty"`
	ReferralsNeeded  int      `json:"referrals_needed"`
	PercentComplete  float64  `json:"percent_complete"`
	MaxTierReached   bool     `json:"max_tier_reached"`
	LifetimeReferred int      `json:"lifetime_paid_referrals"`
}

// Resolver reads brackets from the live program config.
type Resolver struct {
	holder *config.ProgramConfigHolder
}

func NewResolver(holder *config.ProgramConfigHolder) *Resolver {
	return &Resolver{holder: holder}
}

func (r *Resolver) tiers() []config.CommissionTier {
	cfg := r.holder.Get()
	return cfg.Tiers
}

// Resolve returns the bracket for a lifetime paid-referral count. Config
// validation guarantees the brackets are ordered and rate-monotonic, so the
// last bracket whose threshold is satisfied wins.
func (r *Resolver) Resolve(lifetimePaidReferrals int) Tier {
	if lifetimePaidReferrals < 0 {
		lifetimePaidReferrals = 0
	}
	tiers := r.tiers()
	current := tiers[0]
	for _, t := range tiers[1:] {
		if lifetimePaidReferrals >= t.MinReferrals {
			current = t
		}
	}
	return Tier{Name: current.Name, MinReferrals: current.MinReferrals, MemberRate: current.MemberRate}
}

// Progress reports distance to the next bracket for UI progress bars.
func (r *Resolver) Progress(lifetimePaidReferrals int) Progress {
	if lifetimePaidReferrals < 0 {
		lifetimePaidReferrals = 0
	}
	tiers := r.tiers()
	current := r.Resolve(lifetimePaidReferrals)

	progress := Progress{
		Current:          current,
		LifetimeReferred: lifetimePaidReferrals,
	}

	var next *config.CommissionTier
	for i := range tiers {
		if tiers[i].MinReferrals > lifetimePaidReferrals {
			next = &tiers[i]
			break
		}
	}
	if next == nil {
		progress.MaxTierReached = true
		progress.PercentComplete = 100
		return progress
	}

	progress.NextName = &next.Name
	progress.NextThreshold = &next.MinReferrals
	progress.NextRate = &next.MemberRate
	progress.ReferralsNeeded = next.MinReferrals - lifetimePaidReferrals

	span := next.MinReferrals - current.MinReferrals
	if span > 0 {
		pct := float64(lifetimePaidReferrals-current.MinReferrals) / float64(span) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		progress.PercentComplete = pct
	}
	return progress
}
