package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CommissionTier is one rate bracket of the referral program, keyed by the
// minimum lifetime paid-referral count that unlocks it.
type CommissionTier struct {
	Name         string  `mapstructure:"name" json:"name"`
	MinReferrals int     `mapstructure:"minReferrals" json:"min_referrals"`
	MemberRate   float64 `mapstructure:"memberRate" json:"member_rate"`
}

// ProgramConfig carries the tunable knobs of the referral program.
type ProgramConfig struct {
	Tiers              []CommissionTier `mapstructure:"tiers"`
	PlatformFeePercent float64          `mapstructure:"platformFeePercent"`
	InvoiceMinimum     float64          `mapstructure:"invoiceMinimum"`
}

func DefaultProgramConfig() ProgramConfig {
	return ProgramConfig{
		Tiers: []CommissionTier{
			{Name: "starter", MinReferrals: 0, MemberRate: 0.10},
			{Name: "ambassador", MinReferrals: 50, MemberRate: 0.15},
			{Name: "elite", MinReferrals: 100, MemberRate: 0.20},
		},
		PlatformFeePercent: 0.20,
		InvoiceMinimum:     10.00,
	}
}

// ProgramConfigHolder hot-reloads the program config from disk. Readers get
// a consistent snapshot via Get; a malformed file on reload is ignored
// wholesale so tiers can never become non-monotonic mid-flight.
type ProgramConfigHolder struct {
	current atomic.Value // holds ProgramConfig
}

func NewProgramConfigHolder() (*ProgramConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("program")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/flywheel/config") // Volume-mounted config
	v.AddConfigPath("/etc/flywheel")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("FLYWHEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultProgramConfig()
	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}
	if fileFound {
		if err := v.UnmarshalKey("program", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validateProgramConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ProgramConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := DefaultProgramConfig()
			if err := v.UnmarshalKey("program", &updated); err != nil {
				log.Printf("[program-config] reload failed: %v", err)
				return
			}
			if err := validateProgramConfig(updated); err != nil {
				log.Printf("[program-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[program-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *ProgramConfigHolder) Get() ProgramConfig {
	return h.current.Load().(ProgramConfig)
}

// NewStaticProgramConfigHolder wraps a fixed config, for tests.
func NewStaticProgramConfigHolder(cfg ProgramConfig) *ProgramConfigHolder {
	holder := &ProgramConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateProgramConfig(cfg ProgramConfig) error {
	if len(cfg.Tiers) == 0 {
		return errors.New("program.tiers cannot be empty")
	}
	if cfg.Tiers[0].MinReferrals != 0 {
		return errors.New("program.tiers must start at minReferrals 0")
	}
	for i, tier := range cfg.Tiers {
		if strings.TrimSpace(tier.Name) == "" {
			return fmt.Errorf("program.tiers[%d].name cannot be empty", i)
		}
		if tier.MemberRate <= 0 || tier.MemberRate >= 1 {
			return fmt.Errorf("program.tiers[%d].memberRate must be in (0, 1)", i)
		}
		if i == 0 {
			continue
		}
		prev := cfg.Tiers[i-1]
		if tier.MinReferrals <= prev.MinReferrals {
			return fmt.Errorf("program.tiers[%d] threshold must exceed the previous tier", i)
		}
		if tier.MemberRate < prev.MemberRate {
			return fmt.Errorf("program.tiers[%d] rate must not drop below the previous tier", i)
		}
	}
	if cfg.PlatformFeePercent <= 0 || cfg.PlatformFeePercent >= 1 {
		return errors.New("program.platformFeePercent must be in (0, 1)")
	}
	if cfg.InvoiceMinimum < 0 {
		return errors.New("program.invoiceMinimum cannot be negative")
	}
	return nil
}
