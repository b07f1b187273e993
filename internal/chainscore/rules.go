package chainscore

import (
	"strings"

	"github.com/smallbiznis/shopfinder/internal/brandkey"
)

// Rules holds the list-driven parts of the heuristic. KnownChains must be
// brand keys; NewRules normalizes them.
type Rules struct {
	KnownChains          []string `json:"known_chains" yaml:"known_chains"`
	StoreLocatorPatterns []string `json:"store_locator_patterns" yaml:"store_locator_patterns"`

	chains map[string]struct{}
}

var defaultKnownChains = []string{
	"subway",
	"jimmy johns",
	"jersey mikes",
	"jersey mikes subs",
	"firehouse subs",
	"potbelly",
	"potbelly sandwich shop",
	"panera bread",
	"panera",
	"quiznos",
	"jasons deli",
	"mcalisters deli",
	"schlotzskys",
	"which wich",
	"penn station",
	"capriottis",
	"blimpie",
	"charleys philly steaks",
	"cousins subs",
	"togos",
	"wawa",
	"primo hoagies",
}

var defaultStoreLocatorPatterns = []string{
	"locations",
	"store-locator",
	"storelocator",
	"find-a-store",
	"our-stores",
	"storefinder",
	"store-finder",
}

// DefaultRules returns the built-in chain denylist and locator patterns.
func DefaultRules() Rules {
	return NewRules(defaultKnownChains, defaultStoreLocatorPatterns)
}

// NewRules normalizes and de-duplicates the supplied lists.
func NewRules(knownChains, locatorPatterns []string) Rules {
	rules := Rules{chains: make(map[string]struct{}, len(knownChains))}
	for _, raw := range knownChains {
		key := brandkey.Normalize(raw)
		if key == "" {
			continue
		}
		if _, ok := rules.chains[key]; ok {
			continue
		}
		rules.chains[key] = struct{}{}
		rules.KnownChains = append(rules.KnownChains, key)
	}
	seen := map[string]struct{}{}
	for _, raw := range locatorPatterns {
		pattern := strings.ToLower(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}
		if _, ok := seen[pattern]; ok {
			continue
		}
		seen[pattern] = struct{}{}
		rules.StoreLocatorPatterns = append(rules.StoreLocatorPatterns, pattern)
	}
	return rules
}

// MatchesKnownChain reports whether key is exactly a listed chain. Names that
// merely start with a chain's words are left to the other signals.
func (r Rules) MatchesKnownChain(key string) bool {
	if key == "" {
		return false
	}
	chains := r.chains
	if chains == nil {
		chains = make(map[string]struct{}, len(r.KnownChains))
		for _, c := range r.KnownChains {
			chains[c] = struct{}{}
		}
	}
	_, ok := chains[key]
	return ok
}

// MatchesStoreLocator reports whether the website looks like a page from a
// multi-location store finder.
func (r Rules) MatchesStoreLocator(websiteURL string) bool {
	value := strings.ToLower(strings.TrimSpace(websiteURL))
	if value == "" {
		return false
	}
	for _, pattern := range r.StoreLocatorPatterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}
