package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// brandRulesFile is the shape of brand_rules.yml:
//
//	brand_rules:
//	  replace_defaults: false
//	  known_chains: ["Hoagie Haven"]
//	  store_locator_patterns: ["/branches"]
type brandRulesFile struct {
	ReplaceDefaults      bool     `mapstructure:"replace_defaults"`
	KnownChains          []string `mapstructure:"known_chains"`
	StoreLocatorPatterns []string `mapstructure:"store_locator_patterns"`
}

// BrandRulesHolder serves the current chain denylist. The file is optional;
// without it the built-in rules apply. Edits are picked up while running and
// an invalid edit keeps the previous rules.
type BrandRulesHolder struct {
	current atomic.Value // holds chainscore.Rules
	log     *zap.Logger
}

func NewBrandRulesHolder(cfg Config, log *zap.Logger) (*BrandRulesHolder, error) {
	holder := &BrandRulesHolder{log: log.Named("config.brand_rules")}
	holder.current.Store(chainscore.DefaultRules())

	v := viper.New()
	if path := strings.TrimSpace(cfg.Brand.RulesPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("brand_rules")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/shopfinder")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			holder.log.Info("no brand rules file, using built-in rules")
			return holder, nil
		}
		return nil, err
	}

	if err := holder.apply(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.apply(v); err != nil {
			holder.log.Warn("invalid brand rules ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.log.Info("brand rules reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBrandRules returns a holder that never reloads.
func NewStaticBrandRules(rules chainscore.Rules) *BrandRulesHolder {
	holder := &BrandRulesHolder{log: zap.NewNop()}
	holder.current.Store(rules)
	return holder
}

// Rules returns the current snapshot. Callers keep it for one request.
func (h *BrandRulesHolder) Rules() chainscore.Rules {
	return h.current.Load().(chainscore.Rules)
}

func (h *BrandRulesHolder) apply(v *viper.Viper) error {
	var file brandRulesFile
	if err := v.UnmarshalKey("brand_rules", &file); err != nil {
		return err
	}
	rules, err := buildBrandRules(file)
	if err != nil {
		return err
	}
	h.current.Store(rules)
	return nil
}

func buildBrandRules(file brandRulesFile) (chainscore.Rules, error) {
	chains := file.KnownChains
	patterns := file.StoreLocatorPatterns
	if !file.ReplaceDefaults {
		defaults := chainscore.DefaultRules()
		chains = append(append([]string{}, defaults.KnownChains...), chains...)
		patterns = append(append([]string{}, defaults.StoreLocatorPatterns...), patterns...)
	}

	rules := chainscore.NewRules(chains, patterns)
	if len(rules.KnownChains) == 0 {
		return chainscore.Rules{}, errors.New("brand_rules.known_chains cannot be empty")
	}
	return rules, nil
}
