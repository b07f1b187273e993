package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	brandrepository "github.com/smallbiznis/shopfinder/internal/brand/repository"
	brandservice "github.com/smallbiznis/shopfinder/internal/brand/service"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/internal/migration"
	"github.com/smallbiznis/shopfinder/internal/providers/notify"
	"github.com/smallbiznis/shopfinder/internal/ratelimit"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	shoprepository "github.com/smallbiznis/shopfinder/internal/shop/repository"
	shopservice "github.com/smallbiznis/shopfinder/internal/shop/service"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	submissionrepository "github.com/smallbiznis/shopfinder/internal/submission/repository"
	submissionservice "github.com/smallbiznis/shopfinder/internal/submission/service"
	"github.com/smallbiznis/shopfinder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// spyBrands counts registry calls made outside a transaction.
type spyBrands struct {
	branddomain.Service
	reads  int
	writes int
}

func (s *spyBrands) Get(ctx context.Context, brandKey string) (*branddomain.Brand, error) {
	s.reads++
	return s.Service.Get(ctx, brandKey)
}

func (s *spyBrands) RecordTelemetry(ctx context.Context, req branddomain.TelemetryRequest) error {
	s.writes++
	return s.Service.RecordTelemetry(ctx, req)
}

type recordingNotifier struct {
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.events = append(n.events, event)
	return n.err
}

type auditEntry struct {
	action   string
	target   string
	metadata map[string]any
}

type recordingAudit struct {
	entries []auditEntry
}

func (a *recordingAudit) AuditLog(_ context.Context, _ string, _ *string, action string, _ string, targetID *string, metadata map[string]any) error {
	a.entries = append(a.entries, auditEntry{action: action, target: *targetID, metadata: metadata})
	return nil
}

func (a *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, ratelimit.ErrSubmitInProgress
}

type denyingThrottle struct{}

func (denyingThrottle) Allow(context.Context, string) (ratelimit.BucketResult, error) {
	return ratelimit.BucketResult{Allowed: false, RetryAfter: 6 * time.Second}, nil
}

type brokenThrottle struct{}

func (brokenThrottle) Allow(context.Context, string) (ratelimit.BucketResult, error) {
	return ratelimit.BucketResult{}, errors.New("redis: connection refused")
}

type missingSchema struct{}

func (missingSchema) Ready(...string) error {
	return db.ErrSchemaNotReady
}

type harness struct {
	svc         *Service
	conn        *gorm.DB
	clk         *clock.FakeClock
	brands      *spyBrands
	shops       shopdomain.Service
	submissions submissiondomain.Service
	notifier    *recordingNotifier
	audits      *recordingAudit
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&branddomain.Brand{},
		&branddomain.BrandAction{},
		&submissiondomain.Submission{},
		&shopdomain.Location{},
		&shopdomain.Shop{},
		&shopdomain.ShopLocation{},
		&shopdomain.ShopCategory{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	brands := &spyBrands{Service: brandservice.New(brandservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: brandrepository.Provide(),
	})}
	shops := shopservice.New(shopservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: shoprepository.Provide(),
	})
	submissions := submissionservice.New(submissionservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: submissionrepository.Provide(),
	})

	cfg := config.Config{
		Brand: config.BrandConfig{EnforcementMode: mode},
		RateLimit: config.RateLimitConfig{
			SubmissionsPerHour: 3,
			SubmissionsPerDay:  12,
			LockTTLSeconds:     10,
			AttemptsPerMinute:  10,
			AttemptBurst:       5,
		},
	}
	notifier := &recordingNotifier{}
	audits := &recordingAudit{}

	svc := New(Params{
		DB:          conn,
		Log:         log,
		Config:      cfg,
		Clock:       clk,
		Rules:       config.NewStaticBrandRules(chainscore.DefaultRules()),
		Brands:      brands,
		Submissions: submissions,
		Shops:       shops,
		Limiter:     ratelimit.NewSubmissionLimiter(ratelimit.LimitsFromConfig(cfg), shops, submissions, clk, log),
		Locker:      ratelimit.NewSubmitLocker(nil, cfg, log),
		Throttle:    ratelimit.NewAttemptThrottle(nil, cfg),
		Notifier:    notifier,
		AuditSvc:    audits,
	}).(*Service)

	return &harness{
		svc:         svc,
		conn:        conn,
		clk:         clk,
		brands:      brands,
		shops:       shops,
		submissions: submissions,
		notifier:    notifier,
		audits:      audits,
	}
}

func independentShop(name string) shopdomain.CreateRequest {
	return shopdomain.CreateRequest{
		ShopName:               name,
		Address:                "12 Main St",
		City:                   "Springfield",
		CategoryIDs:            []int64{3},
		ChainAttestation:       "no",
		EstimatedLocationCount: "lt10",
		EligibilityConfirmed:   true,
	}
}

// borderlineShop scores exactly 50 once the brand is known to have six
// locations: 35 for the known count plus 15 for an unsure submitter.
func (h *harness) borderlineShop(t *testing.T) shopdomain.CreateRequest {
	t.Helper()
	six := 6
	require.NoError(t, h.brands.Service.RecordTelemetry(context.Background(), branddomain.TelemetryRequest{
		BrandKey:           "hoagie haven",
		DisplayName:        "Hoagie Haven",
		KnownLocationCount: &six,
	}))
	req := independentShop("Hoagie Haven")
	req.ChainAttestation = "unsure"
	req.EstimatedLocationCount = "unsure"
	return req
}

func (h *harness) submit(t *testing.T, user string, req shopdomain.CreateRequest) (*domain.SubmitResult, error) {
	t.Helper()
	return h.svc.SubmitShop(context.Background(), domain.SubmitRequest{UserID: user, Request: req})
}

func (h *harness) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Table(table).Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind domain.Kind) *domain.Error {
	t.Helper()
	var enfErr *domain.Error
	require.ErrorAs(t, err, &enfErr)
	require.Equal(t, kind, enfErr.Kind, enfErr.Error())
	return enfErr
}

func TestSubmitCreatesIndependentShop(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)

	res, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmitCreated, res.Status)
	assert.Equal(t, "tiny sandwich co", res.BrandKey)
	assert.Equal(t, chainscore.DecisionAllow, res.Decision)
	require.NotNil(t, res.Score)
	assert.Zero(t, *res.Score)
	assert.Empty(t, res.Reasons)

	shop, err := h.shops.Get(context.Background(), res.ShopID)
	require.NoError(t, err)
	require.NotNil(t, shop.BrandKey)
	assert.Equal(t, "tiny sandwich co", *shop.BrandKey)

	brand, err := h.brands.Service.Get(context.Background(), "tiny sandwich co")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusUnknown, brand.Status)
	require.NotNil(t, brand.LastChainScore)
	assert.Zero(t, *brand.LastChainScore)
	assert.Equal(t, "Tiny Sandwich Co", brand.DisplayName)
	assert.Equal(t, string(domain.ModeEnforce), brand.LastSignals.Data().Mode)
	assert.Empty(t, h.notifier.events)
}

func TestSubmitRequiresEligibilityBeforeRegistryAccess(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	req := independentShop("Tiny Sandwich Co")
	req.EligibilityConfirmed = false

	_, err := h.submit(t, "user-1", req)

	assert.ErrorIs(t, err, domain.ErrEligibilityRequired)
	assert.Zero(t, h.brands.reads)
	assert.Zero(t, h.brands.writes)
	assert.Zero(t, h.count(t, "brands"))
	assert.Zero(t, h.count(t, "shops"))
}

func TestSubmitRejectsUnusableNames(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)

	_, err := h.submit(t, "user-1", independentShop("   "))
	requireKind(t, err, domain.KindInvalidInput)

	_, err = h.submit(t, "user-1", independentShop("###"))
	requireKind(t, err, domain.KindInvalidInput)

	assert.Zero(t, h.brands.reads)
}

func TestSubmitRefusesLikelyChain(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	req := independentShop("Subway #200")
	req.WebsiteURL = "https://subway.com/locations"
	req.ChainAttestation = "unsure"
	req.EstimatedLocationCount = "unsure"

	_, err := h.submit(t, "user-1", req)

	enfErr := requireKind(t, err, domain.KindChainNotAllowed)
	require.NotNil(t, enfErr.Score)
	assert.Equal(t, 100, *enfErr.Score)
	assert.Equal(t, []string{
		chainscore.ReasonKnownChainMatch,
		chainscore.ReasonStoreNumberPattern,
		chainscore.ReasonWebsiteStoreLocator,
		chainscore.ReasonSubmitterUnsureChain,
		chainscore.ReasonSubmitterUnsureLocations,
	}, enfErr.Reasons)

	brand, err := h.brands.Service.Get(context.Background(), "subway")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusBlocked, brand.Status)
	assert.Zero(t, h.count(t, "shops"))

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, notify.EventChainBlocked, h.notifier.events[0].Kind)
	assert.Equal(t, "subway", h.notifier.events[0].BrandKey)
}

func TestSubmitBlockedBrandShortCircuits(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	_, err := h.svc.SetBrandStatus(context.Background(), domain.SetBrandStatusRequest{
		BrandKey: "hoagie haven",
		Status:   branddomain.StatusBlocked,
		ActorID:  "admin-1",
	})
	require.NoError(t, err)

	_, err = h.submit(t, "user-1", independentShop("Hoagie Haven"))

	enfErr := requireKind(t, err, domain.KindBrandBlocked)
	assert.Equal(t, []string{chainscore.ReasonBrandAlreadyBlocked}, enfErr.Reasons)
	require.NotNil(t, enfErr.Score)
	assert.Equal(t, 100, *enfErr.Score)
	assert.Zero(t, h.brands.writes)
	assert.Zero(t, h.count(t, "shops"))
}

func TestSubmitQueuesBorderlineBrand(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	req := h.borderlineShop(t)

	res, err := h.submit(t, "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmitQueued, res.Status)
	assert.Equal(t, chainscore.DecisionReview, res.Decision)
	assert.NotZero(t, res.SubmissionID)
	assert.Zero(t, h.count(t, "shops"))

	item, err := h.submissions.Get(context.Background(), res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, submissiondomain.StatusPending, item.Status)
	assert.Equal(t, "hoagie haven", item.BrandKey)
	assert.Equal(t, 50, item.ChainScore)
	assert.Equal(t, "Hoagie Haven", item.Payload.Data().ShopName)

	brand, err := h.brands.Service.Get(context.Background(), "hoagie haven")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusNeedsReview, brand.Status)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, notify.EventQueued, h.notifier.events[0].Kind)
	assert.Equal(t, res.SubmissionID.String(), h.notifier.events[0].SubmissionID)

	resp := res.Response()
	assert.Equal(t, domain.SubmitQueued, resp.Status)
	assert.Empty(t, resp.ShopID)
	assert.NotEmpty(t, resp.Message)
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.notifier.err = errors.New("sns unavailable")

	res, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitQueued, res.Status)
}

func TestShadowModeNeverBlocksOrQueues(t *testing.T) {
	h := newHarness(t, config.EnforcementShadow)
	req := independentShop("Subway #200")
	req.WebsiteURL = "https://subway.com/locations"
	req.EligibilityConfirmed = false

	res, err := h.submit(t, "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmitCreated, res.Status)
	assert.Equal(t, chainscore.DecisionBlock, res.Decision)
	assert.Equal(t, "subway", res.BrandKey)

	brand, err := h.brands.Service.Get(context.Background(), "subway")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusUnknown, brand.Status)
	require.NotNil(t, brand.LastChainScore)
	assert.Equal(t, 100, *brand.LastChainScore)
	assert.Zero(t, h.count(t, "shop_submissions"))
	assert.Empty(t, h.notifier.events)
}

func TestShadowModeMarksReviewDecisions(t *testing.T) {
	h := newHarness(t, config.EnforcementShadow)

	res, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitCreated, res.Status)

	brand, err := h.brands.Service.Get(context.Background(), "hoagie haven")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusNeedsReview, brand.Status)
}

func TestOffModeSkipsBrandLogic(t *testing.T) {
	h := newHarness(t, config.EnforcementOff)
	req := independentShop("Subway #200")
	req.EligibilityConfirmed = false

	res, err := h.submit(t, "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmitCreated, res.Status)
	assert.Empty(t, res.BrandKey)
	assert.Nil(t, res.Score)

	shop, err := h.shops.Get(context.Background(), res.ShopID)
	require.NoError(t, err)
	assert.Nil(t, shop.BrandKey)
	assert.Zero(t, h.brands.reads)
	assert.Zero(t, h.count(t, "brands"))
}

func TestSubmitHourlyQuotaCountsShopsAndQueuedSubmissions(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)

	_, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))
	require.NoError(t, err)
	_, err = h.submit(t, "user-1", independentShop("Corner Hoagies"))
	require.NoError(t, err)
	res, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)
	require.Equal(t, domain.SubmitQueued, res.Status)

	_, err = h.submit(t, "user-1", independentShop("Late Night Subs"))

	enfErr := requireKind(t, err, domain.KindRateLimited)
	assert.Equal(t, string(ratelimit.WindowHour), enfErr.Window)
	assert.Equal(t, 3, enfErr.Cap)
	assert.Contains(t, enfErr.Message, "per hour")

	// Another user is unaffected.
	_, err = h.submit(t, "user-2", independentShop("Late Night Subs"))
	assert.NoError(t, err)

	h.clk.Advance(61 * time.Minute)
	_, err = h.submit(t, "user-1", independentShop("Late Night Subs 2"))
	assert.NoError(t, err)
}

func TestSubmitRateLimitRunsBeforeValidation(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.svc.locker = busyLocker{}

	req := independentShop("Tiny Sandwich Co")
	req.EligibilityConfirmed = false
	_, err := h.submit(t, "user-1", req)

	enfErr := requireKind(t, err, domain.KindRateLimited)
	assert.Contains(t, enfErr.Message, "still being processed")
}

func TestSubmitAttemptThrottle(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.svc.throttle = denyingThrottle{}

	_, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))

	enfErr := requireKind(t, err, domain.KindRateLimited)
	assert.Equal(t, 6*time.Second, enfErr.RetryAfter)
}

func TestSubmitIgnoresThrottleOutage(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.svc.throttle = brokenThrottle{}

	res, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitCreated, res.Status)
}

func TestSubmitSchemaNotReady(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.svc.schema = missingSchema{}

	_, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))

	assert.ErrorIs(t, err, domain.ErrSchemaNotReady)
	assert.ErrorIs(t, err, db.ErrSchemaNotReady)
}

func TestSubmitWithoutSubmissionsTableStillCreates(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	h.svc.schema = db.NewSchemaGate(h.conn, migration.Requirements(), time.Minute)
	require.NoError(t, h.conn.Migrator().DropTable(&submissiondomain.Submission{}))

	res, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitCreated, res.Status)

	_, err = h.submit(t, "user-2", h.borderlineShop(t))
	requireKind(t, err, domain.KindSchemaNotReady)
	assert.EqualValues(t, 1, h.count(t, "shops"))
}

func TestSubmitOffModeNeedsOnlyShopTables(t *testing.T) {
	h := newHarness(t, config.EnforcementOff)
	h.svc.schema = db.NewSchemaGate(h.conn, migration.Requirements(), time.Minute)
	require.NoError(t, h.conn.Migrator().DropTable(
		&branddomain.Brand{},
		&branddomain.BrandAction{},
		&submissiondomain.Submission{},
	))

	res, err := h.submit(t, "user-1", independentShop("Subway"))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitCreated, res.Status)

	_, err = h.svc.ListSubmissions(context.Background(), submissiondomain.ListFilter{})
	requireKind(t, err, domain.KindSchemaNotReady)
}

func TestSubmitMissingTableIsSchemaNotReady(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	require.NoError(t, h.conn.Migrator().DropTable(&shopdomain.Shop{}))

	_, err := h.submit(t, "user-1", independentShop("Tiny Sandwich Co"))

	requireKind(t, err, domain.KindSchemaNotReady)
}

func TestReviewApproveCreatesShopAndAllowsBrand(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	queued, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)

	res, err := h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
		SubmissionID: queued.SubmissionID,
		Decision:     submissiondomain.DecisionApprove,
		ReviewerID:   "admin-1",
		Note:         "independent family shop",
	})
	require.NoError(t, err)

	assert.Equal(t, submissiondomain.StatusApproved, res.Submission.Status)
	require.NotNil(t, res.ShopID)
	require.NotNil(t, res.Submission.ApprovedShopID)
	assert.Equal(t, *res.ShopID, *res.Submission.ApprovedShopID)

	shop, err := h.shops.Get(context.Background(), *res.ShopID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", shop.CreatedByUserID)
	require.NotNil(t, shop.BrandKey)
	assert.Equal(t, "hoagie haven", *shop.BrandKey)

	brand, err := h.brands.Service.Get(context.Background(), "hoagie haven")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusAllowed, brand.Status)

	require.Len(t, h.audits.entries, 1)
	assert.Equal(t, auditdomain.ActionSubmissionReviewed, h.audits.entries[0].action)
	assert.Equal(t, queued.SubmissionID.String(), h.audits.entries[0].target)
	assert.Equal(t, res.ShopID.String(), h.audits.entries[0].metadata["shop_id"])
}

func TestReviewDecisionsAreFinal(t *testing.T) {
	cases := []struct {
		name   string
		first  submissiondomain.Decision
		second submissiondomain.Decision
		final  submissiondomain.Status
	}{
		{"approve then reject", submissiondomain.DecisionApprove, submissiondomain.DecisionReject, submissiondomain.StatusApproved},
		{"reject then approve", submissiondomain.DecisionReject, submissiondomain.DecisionApprove, submissiondomain.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, config.EnforcementEnforce)
			queued, err := h.submit(t, "user-1", h.borderlineShop(t))
			require.NoError(t, err)

			_, err = h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
				SubmissionID: queued.SubmissionID, Decision: tc.first, ReviewerID: "admin-1",
			})
			require.NoError(t, err)
			shopsAfterFirst := h.count(t, "shops")

			_, err = h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
				SubmissionID: queued.SubmissionID, Decision: tc.second, ReviewerID: "admin-2",
			})
			assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)

			item, err := h.submissions.Get(context.Background(), queued.SubmissionID)
			require.NoError(t, err)
			assert.Equal(t, tc.final, item.Status)
			require.NotNil(t, item.ReviewedByUserID)
			assert.Equal(t, "admin-1", *item.ReviewedByUserID)
			assert.Equal(t, shopsAfterFirst, h.count(t, "shops"))
		})
	}
}

func TestReviewApproveRefusedWhileBrandBlocked(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	queued, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)

	_, err = h.svc.SetBrandStatus(context.Background(), domain.SetBrandStatusRequest{
		BrandKey: "hoagie haven",
		Status:   branddomain.StatusBlocked,
		ActorID:  "admin-1",
	})
	require.NoError(t, err)

	_, err = h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
		SubmissionID: queued.SubmissionID,
		Decision:     submissiondomain.DecisionApprove,
		ReviewerID:   "admin-2",
	})
	requireKind(t, err, domain.KindBrandBlocked)

	item, err := h.submissions.Get(context.Background(), queued.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, submissiondomain.StatusPending, item.Status)
	assert.Zero(t, h.count(t, "shops"))

	brand, err := h.brands.Service.Get(context.Background(), "hoagie haven")
	require.NoError(t, err)
	assert.Equal(t, branddomain.StatusBlocked, brand.Status)

	// Rejecting still works.
	res, err := h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
		SubmissionID: queued.SubmissionID,
		Decision:     submissiondomain.DecisionReject,
		ReviewerID:   "admin-2",
	})
	require.NoError(t, err)
	assert.Equal(t, submissiondomain.StatusRejected, res.Submission.Status)
}

func TestReviewApproveInvalidPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing shop name", `{"shop_name": "", "address": "1 Main St", "city": "Springfield"}`},
		{"unparseable", `{"shop_name": 12`},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, config.EnforcementEnforce)
			id := 100 + i
			require.NoError(t, h.conn.Exec(
				`INSERT INTO shop_submissions (id, submitted_by_user_id, submitted_at, status, brand_key, chain_score, signals, payload)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, "user-1", h.clk.Now(), submissiondomain.StatusPending, "hoagie haven", 55, `{}`, tc.payload,
			).Error)

			_, err := h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
				SubmissionID: snowflake.ID(id),
				Decision:     submissiondomain.DecisionApprove,
				ReviewerID:   "admin-1",
			})
			requireKind(t, err, domain.KindInvalidPayload)
			assert.Zero(t, h.count(t, "shops"))

			// The corrupt submission can still be cleared out of the queue.
			res, err := h.svc.ReviewSubmission(context.Background(), domain.ReviewRequest{
				SubmissionID: snowflake.ID(id),
				Decision:     submissiondomain.DecisionReject,
				ReviewerID:   "admin-1",
			})
			require.NoError(t, err)
			assert.Equal(t, submissiondomain.StatusRejected, res.Submission.Status)
		})
	}
}

func TestReviewValidation(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	ctx := context.Background()

	_, err := h.svc.ReviewSubmission(ctx, domain.ReviewRequest{
		SubmissionID: snowflake.ID(42), Decision: submissiondomain.DecisionApprove, ReviewerID: "admin-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.svc.ReviewSubmission(ctx, domain.ReviewRequest{
		SubmissionID: snowflake.ID(42), Decision: submissiondomain.DecisionReject, ReviewerID: "admin-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.svc.ReviewSubmission(ctx, domain.ReviewRequest{
		SubmissionID: snowflake.ID(42), Decision: "escalate", ReviewerID: "admin-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.svc.ReviewSubmission(ctx, domain.ReviewRequest{
		SubmissionID: snowflake.ID(42), Decision: submissiondomain.DecisionReject,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetBrandStatusRetroactiveRoundTrip(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	ctx := context.Background()

	var ids []snowflake.ID
	for _, name := range []string{"Hoagie Haven #1", "Hoagie Haven #2", "Hoagie Haven #3"} {
		res, err := h.submit(t, "user-1", independentShop(name))
		require.NoError(t, err)
		require.Equal(t, "hoagie haven", res.BrandKey)
		ids = append(ids, res.ShopID)
	}
	require.NoError(t, h.conn.Exec(
		`UPDATE shops SET content_status = ?, hidden_source = ? WHERE id = ?`,
		shopdomain.ContentStatusHidden, shopdomain.HiddenSourceReport, ids[2],
	).Error)

	blocked, err := h.svc.SetBrandStatus(ctx, domain.SetBrandStatusRequest{
		BrandKey:         "Hoagie Haven",
		Status:           branddomain.StatusBlocked,
		Reason:           "franchise with 40 locations",
		ApplyRetroactive: true,
		ActorID:          "admin-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, blocked.AffectedShops)
	assert.Equal(t, branddomain.ActionBlock, blocked.Action.Action)
	assert.Equal(t, branddomain.StatusBlocked, blocked.Brand.Status)

	for _, id := range ids[:2] {
		shop, err := h.shops.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, shopdomain.ContentStatusHidden, shop.ContentStatus)
		require.NotNil(t, shop.HiddenSource)
		assert.Equal(t, shopdomain.HiddenSourceBrand, *shop.HiddenSource)
	}

	allowed, err := h.svc.SetBrandStatus(ctx, domain.SetBrandStatusRequest{
		BrandKey:         "hoagie haven",
		Status:           branddomain.StatusAllowed,
		ApplyRetroactive: true,
		ActorID:          "admin-2",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, allowed.AffectedShops)
	assert.Equal(t, branddomain.ActionUnblock, allowed.Action.Action)

	for _, id := range ids[:2] {
		shop, err := h.shops.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, shopdomain.ContentStatusActive, shop.ContentStatus)
	}
	reported, err := h.shops.Get(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, shopdomain.ContentStatusHidden, reported.ContentStatus)

	detail, err := h.svc.GetBrand(ctx, "hoagie haven", 10)
	require.NoError(t, err)
	require.Len(t, detail.Actions, 2)
	payloads := []branddomain.ActionPayload{detail.Actions[0].Payload.Data(), detail.Actions[1].Payload.Data()}
	assert.ElementsMatch(t, []branddomain.Status{branddomain.StatusBlocked, branddomain.StatusAllowed},
		[]branddomain.Status{payloads[0].Status, payloads[1].Status})
	for _, p := range payloads {
		assert.True(t, p.Retroactive)
		assert.EqualValues(t, 2, p.AffectedShops)
	}

	require.Len(t, h.audits.entries, 2)
	assert.Equal(t, auditdomain.ActionBrandStatusChanged, h.audits.entries[1].action)
	assert.Equal(t, "hoagie haven", h.audits.entries[1].target)
}

func TestSetBrandStatusWithoutRetroactiveLeavesShops(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	res, err := h.submit(t, "user-1", independentShop("Hoagie Haven"))
	require.NoError(t, err)

	out, err := h.svc.SetBrandStatus(context.Background(), domain.SetBrandStatusRequest{
		BrandKey: "hoagie haven",
		Status:   branddomain.StatusBlocked,
		ActorID:  "admin-1",
	})
	require.NoError(t, err)
	assert.Zero(t, out.AffectedShops)
	assert.False(t, out.Action.Payload.Data().Retroactive)

	shop, err := h.shops.Get(context.Background(), res.ShopID)
	require.NoError(t, err)
	assert.Equal(t, shopdomain.ContentStatusActive, shop.ContentStatus)
}

func TestSetBrandStatusValidation(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	ctx := context.Background()

	_, err := h.svc.SetBrandStatus(ctx, domain.SetBrandStatusRequest{BrandKey: "subway", Status: "archived", ActorID: "admin-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.svc.SetBrandStatus(ctx, domain.SetBrandStatusRequest{BrandKey: "  ", Status: branddomain.StatusBlocked, ActorID: "admin-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.svc.SetBrandStatus(ctx, domain.SetBrandStatusRequest{BrandKey: "subway", Status: branddomain.StatusBlocked})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Zero(t, h.count(t, "brand_actions"))
}

func TestPreviewScoreDoesNotWrite(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	req := independentShop("Subway #200")
	req.WebsiteURL = "https://subway.com/locations"

	preview, err := h.svc.PreviewScore(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "subway", preview.BrandKey)
	assert.Equal(t, branddomain.StatusUnknown, preview.KnownStatus)
	assert.Equal(t, 100, preview.Score)
	assert.Equal(t, chainscore.DecisionBlock, preview.Decision)
	assert.Equal(t, domain.ModeEnforce, preview.Mode)
	assert.Zero(t, h.brands.writes)
	assert.Zero(t, h.count(t, "brands"))
}

func TestGetBrandNotFound(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	_, err := h.svc.GetBrand(context.Background(), "nobody", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBrandsRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	status := branddomain.Status("archived")
	_, err := h.svc.ListBrands(context.Background(), branddomain.ListFilter{Status: &status})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListSubmissionsFiltersPending(t *testing.T) {
	h := newHarness(t, config.EnforcementEnforce)
	queued, err := h.submit(t, "user-1", h.borderlineShop(t))
	require.NoError(t, err)

	pending := submissiondomain.StatusPending
	items, err := h.svc.ListSubmissions(context.Background(), submissiondomain.ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queued.SubmissionID, items[0].ID)
}
