package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeRules(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "brand_rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBrandRulesHolderExtendsDefaults(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
brand_rules:
  known_chains:
    - "Hoagie Haven!"
  store_locator_patterns:
    - "/Branches"
`)

	holder, err := NewBrandRulesHolder(Config{Brand: BrandConfig{RulesPath: path}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	rules := holder.Rules()
	assert.True(t, rules.MatchesKnownChain("hoagie haven"))
	assert.True(t, rules.MatchesKnownChain("subway"))
	assert.True(t, rules.MatchesStoreLocator("https://hoagiehaven.example/branches/1"))
	assert.True(t, rules.MatchesStoreLocator("https://x.example/locations"))
}

func TestBrandRulesHolderReplaceDefaults(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
brand_rules:
  replace_defaults: true
  known_chains: ["Hoagie Haven"]
`)

	holder, err := NewBrandRulesHolder(Config{Brand: BrandConfig{RulesPath: path}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	rules := holder.Rules()
	assert.Equal(t, []string{"hoagie haven"}, rules.KnownChains)
	assert.False(t, rules.MatchesKnownChain("subway"))
	assert.Empty(t, rules.StoreLocatorPatterns)
}

func TestBrandRulesHolderRejectsEmptyDenylist(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
brand_rules:
  replace_defaults: true
  known_chains: []
`)

	_, err := NewBrandRulesHolder(Config{Brand: BrandConfig{RulesPath: path}}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestBrandRulesHolderKeepsRulesOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, `
brand_rules:
  known_chains: ["Hoagie Haven"]
`)
	holder, err := NewBrandRulesHolder(Config{Brand: BrandConfig{RulesPath: path}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	writeRules(t, dir, `
brand_rules:
  replace_defaults: true
`)
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Error(t, holder.apply(v))
	assert.True(t, holder.Rules().MatchesKnownChain("hoagie haven"))
}

func TestStaticBrandRules(t *testing.T) {
	holder := NewStaticBrandRules(chainscore.DefaultRules())
	assert.True(t, holder.Rules().MatchesKnownChain("panera bread"))
}
