// Package chainscore estimates how likely a shop submission belongs to a
// chain or franchise. Everything here is pure: callers gather the signals and
// supply the rule set.
package chainscore

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/smallbiznis/shopfinder/internal/brandkey"
)

type Attestation string

const (
	AttestationNo     Attestation = "no"
	AttestationYes    Attestation = "yes"
	AttestationUnsure Attestation = "unsure"
)

type LocationEstimate string

const (
	LocationsUnder10 LocationEstimate = "lt10"
	Locations10Plus  LocationEstimate = "gte10"
	LocationsUnsure  LocationEstimate = "unsure"
)

// BrandStatus mirrors the registry status without importing the registry.
type BrandStatus string

const (
	BrandUnknown     BrandStatus = "unknown"
	BrandAllowed     BrandStatus = "allowed"
	BrandBlocked     BrandStatus = "blocked"
	BrandNeedsReview BrandStatus = "needs_review"
)

type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

const (
	BlockThreshold  = 80
	ReviewThreshold = 50
	ChainLocations  = 10
)

// Reason codes, in the order the checks run.
const (
	ReasonBrandAlreadyBlocked       = "brand_already_blocked"
	ReasonSelfReportedChain         = "self_reported_chain_or_franchise"
	ReasonSelfReported10Plus        = "self_reported_10_plus_locations"
	ReasonInternalCountAtLeast10    = "internal_brand_count_at_least_10"
	ReasonKnownCountAtLeast10       = "known_brand_count_at_least_10"
	ReasonInternalCountBetween5And9 = "internal_brand_count_between_5_and_9"
	ReasonKnownCountBetween5And9    = "known_brand_count_between_5_and_9"
	ReasonBrandNeedsReview          = "brand_marked_needs_review"
	ReasonKnownChainMatch           = "known_chain_match"
	ReasonStoreNumberPattern        = "store_number_pattern"
	ReasonWebsiteStoreLocator       = "website_store_locator_pattern"
	ReasonSubmitterUnsureChain      = "submitter_unsure_chain_status"
	ReasonSubmitterUnsureLocations  = "submitter_unsure_location_count"
)

const (
	weightInternalCount5To9 = 30
	weightKnownCount5To9    = 35
	weightNeedsReview       = 30
	weightKnownChain        = 80
	weightStoreNumber       = 10
	weightStoreLocator      = 20
	weightUnsureChain       = 10
	weightUnsureLocations   = 5
)

var storeNumberRE = regexp.MustCompile(`(?i)(#\s*\d+|\b(store|unit|location)\s*#?\s*\d+\b)`)

// Input carries every signal the scorer looks at.
type Input struct {
	ShopName               string
	WebsiteURL             string
	InternalCount          int
	ChainAttestation       Attestation
	EstimatedLocationCount LocationEstimate
	KnownBrandStatus       BrandStatus
	KnownLocationCount     int
}

// Result is the outcome of a scoring run. Reasons keep the order in which the
// checks fired and each check contributes at most once.
type Result struct {
	Score    int      `json:"score"`
	Decision Decision `json:"decision"`
	Reasons  []string `json:"reasons"`
}

// Score runs the heuristic against in using rules.
func Score(in Input, rules Rules) Result {
	internalCount := nonNegative(in.InternalCount)
	knownCount := nonNegative(in.KnownLocationCount)

	switch {
	case in.KnownBrandStatus == BrandBlocked:
		return blocked(ReasonBrandAlreadyBlocked)
	case in.ChainAttestation == AttestationYes:
		return blocked(ReasonSelfReportedChain)
	case in.EstimatedLocationCount == Locations10Plus:
		return blocked(ReasonSelfReported10Plus)
	case internalCount >= ChainLocations:
		return blocked(ReasonInternalCountAtLeast10)
	case knownCount >= ChainLocations:
		return blocked(ReasonKnownCountAtLeast10)
	}

	score := 0
	reasons := []string{}
	add := func(weight int, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	if internalCount >= 5 {
		add(weightInternalCount5To9, ReasonInternalCountBetween5And9)
	}
	if knownCount >= 5 {
		add(weightKnownCount5To9, ReasonKnownCountBetween5And9)
	}
	if in.KnownBrandStatus == BrandNeedsReview {
		add(weightNeedsReview, ReasonBrandNeedsReview)
	}
	if rules.MatchesKnownChain(brandkey.Normalize(in.ShopName)) {
		add(weightKnownChain, ReasonKnownChainMatch)
	}
	if storeNumberRE.MatchString(in.ShopName) {
		add(weightStoreNumber, ReasonStoreNumberPattern)
	}
	if rules.MatchesStoreLocator(in.WebsiteURL) {
		add(weightStoreLocator, ReasonWebsiteStoreLocator)
	}
	if in.ChainAttestation == AttestationUnsure {
		add(weightUnsureChain, ReasonSubmitterUnsureChain)
	}
	if in.EstimatedLocationCount == LocationsUnsure {
		add(weightUnsureLocations, ReasonSubmitterUnsureLocations)
	}

	score = clamp(score, 0, 100)
	return Result{
		Score:    score,
		Decision: DecisionFor(score),
		Reasons:  reasons,
	}
}

// DecisionFor maps a clamped score onto a decision.
func DecisionFor(score int) Decision {
	switch {
	case score >= BlockThreshold:
		return DecisionBlock
	case score >= ReviewThreshold:
		return DecisionReview
	default:
		return DecisionAllow
	}
}

// ParseAttestation accepts the self-report values. Anything unrecognised is
// treated as unsure.
func ParseAttestation(raw string) Attestation {
	switch Attestation(strings.ToLower(strings.TrimSpace(raw))) {
	case AttestationNo:
		return AttestationNo
	case AttestationYes:
		return AttestationYes
	default:
		return AttestationUnsure
	}
}

// ParseLocationEstimate accepts the self-report values. Anything
// unrecognised is treated as unsure.
func ParseLocationEstimate(raw string) LocationEstimate {
	switch LocationEstimate(strings.ToLower(strings.TrimSpace(raw))) {
	case LocationsUnder10:
		return LocationsUnder10
	case Locations10Plus:
		return Locations10Plus
	default:
		return LocationsUnsure
	}
}

// CoerceCount turns loosely typed numeric input into a non-negative integer.
// Invalid, negative, NaN and infinite values become 0.
func CoerceCount(value any) int {
	switch v := value.(type) {
	case int:
		return nonNegative(v)
	case int32:
		return nonNegative(int(v))
	case int64:
		if v < 0 || v > math.MaxInt32 {
			return 0
		}
		return int(v)
	case float32:
		return coerceFloat(float64(v))
	case float64:
		return coerceFloat(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return coerceFloat(parsed)
	default:
		return 0
	}
}

func coerceFloat(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(math.Floor(v))
}

func blocked(reason string) Result {
	return Result{Score: 100, Decision: DecisionBlock, Reasons: []string{reason}}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
