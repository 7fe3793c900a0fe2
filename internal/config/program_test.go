package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProgramConfigIsValid(t *testing.T) {
	cfg := DefaultProgramConfig()
	require.NoError(t, validateProgramConfig(cfg))

	assert.Len(t, cfg.Tiers, 3)
	assert.Equal(t, 0, cfg.Tiers[0].MinReferrals)
	assert.Equal(t, 0.20, cfg.PlatformFeePercent)
	assert.Equal(t, 10.00, cfg.InvoiceMinimum)
}

func TestValidateProgramConfigRejectsBadTiers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ProgramConfig)
	}{
		{"empty tiers", func(c *ProgramConfig) { c.Tiers = nil }},
		{"first tier not zero", func(c *ProgramConfig) { c.Tiers[0].MinReferrals = 5 }},
		{"unnamed tier", func(c *ProgramConfig) { c.Tiers[1].Name = " " }},
		{"rate out of range", func(c *ProgramConfig) { c.Tiers[2].MemberRate = 1.5 }},
		{"non-increasing threshold", func(c *ProgramConfig) { c.Tiers[2].MinReferrals = 50 }},
		{"rate drops between tiers", func(c *ProgramConfig) { c.Tiers[2].MemberRate = 0.05 }},
		{"fee percent out of range", func(c *ProgramConfig) { c.PlatformFeePercent = 0 }},
		{"negative invoice minimum", func(c *ProgramConfig) { c.InvoiceMinimum = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultProgramConfig()
			tc.mutate(&cfg)
			assert.Error(t, validateProgramConfig(cfg))
		})
	}
}

func TestStaticHolderServesSnapshot(t *testing.T) {
	cfg := DefaultProgramConfig()
	cfg.InvoiceMinimum = 25

	holder := NewStaticProgramConfigHolder(cfg)
	assert.Equal(t, 25.0, holder.Get().InvoiceMinimum)
}
