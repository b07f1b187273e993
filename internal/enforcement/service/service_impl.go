package service

import (
	"context"
	"errors"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/internal/migration"
	"github.com/smallbiznis/shopfinder/internal/observability/metrics"
	"github.com/smallbiznis/shopfinder/internal/providers/notify"
	"github.com/smallbiznis/shopfinder/internal/ratelimit"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	"github.com/smallbiznis/shopfinder/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const notifyTimeout = 3 * time.Second

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	Rules       *config.BrandRulesHolder
	Brands      branddomain.Service
	Submissions submissiondomain.Service
	Shops       shopdomain.Service
	Limiter     *ratelimit.SubmissionLimiter
	Locker      *ratelimit.SubmitLocker
	Throttle    *ratelimit.AttemptThrottle
	Schema      *db.SchemaGate      `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
	Notifier    notify.Provider     `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
}

type quotaChecker interface {
	Check(ctx context.Context, userID string) (ratelimit.Result, error)
}

type submitLocker interface {
	Acquire(ctx context.Context, userID string) (func(), error)
}

type attemptThrottle interface {
	Allow(ctx context.Context, userID string) (ratelimit.BucketResult, error)
}

// schemaChecker reports whether the named tables exist, or all of them when
// none are named.
type schemaChecker interface {
	Ready(tables ...string) error
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	mode        domain.Mode
	clock       clock.Clock
	rules       *config.BrandRulesHolder
	brands      branddomain.Service
	submissions submissiondomain.Service
	shops       shopdomain.Service
	quota       quotaChecker
	locker      submitLocker
	throttle    attemptThrottle
	schema      schemaChecker
	metrics     *metrics.Metrics
	notifier    notify.Provider
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = notify.NoOpProvider{}
	}
	rules := p.Rules
	if rules == nil {
		rules = config.NewStaticBrandRules(chainscore.DefaultRules())
	}

	svc := &Service{
		db:          p.DB,
		log:         p.Log.Named("enforcement.service"),
		mode:        domain.ParseMode(p.Config.Brand.EnforcementMode),
		clock:       p.Clock,
		rules:       rules,
		brands:      p.Brands,
		submissions: p.Submissions,
		shops:       p.Shops,
		quota:       p.Limiter,
		locker:      p.Locker,
		throttle:    p.Throttle,
		metrics:     p.Metrics,
		notifier:    notifier,
		auditSvc:    p.AuditSvc,
	}
	// A typed nil gate inside the interface would still be non-nil.
	if p.Schema != nil {
		svc.schema = p.Schema
	}
	svc.log.Info("brand enforcement configured", zap.String("mode", svc.mode.String()))
	return svc
}

func (s *Service) Mode() domain.Mode {
	return s.mode
}

func (s *Service) GetBrand(ctx context.Context, brandKey string, actionLimit int) (*domain.BrandDetail, error) {
	if err := s.schemaReady(migration.BrandTables...); err != nil {
		return nil, err
	}
	key := brandkey.Normalize(brandKey)
	if key == "" {
		return nil, invalidInput("brand key is required", nil)
	}

	record, err := s.brands.Get(ctx, key)
	if err != nil {
		return nil, brandError(err)
	}
	actions, err := s.brands.ListActions(ctx, key, actionLimit)
	if err != nil {
		return nil, brandError(err)
	}
	return &domain.BrandDetail{Brand: record, Actions: actions}, nil
}

func (s *Service) ListBrands(ctx context.Context, filter branddomain.ListFilter) ([]branddomain.Brand, error) {
	if err := s.schemaReady(migration.BrandTables...); err != nil {
		return nil, err
	}
	items, err := s.brands.List(ctx, filter)
	if err != nil {
		return nil, brandError(err)
	}
	return items, nil
}

func (s *Service) ListSubmissions(ctx context.Context, filter submissiondomain.ListFilter) ([]submissiondomain.Submission, error) {
	if err := s.schemaReady(migration.SubmissionTables...); err != nil {
		return nil, err
	}
	items, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, submissionError(err)
	}
	return items, nil
}

func (s *Service) PreviewScore(ctx context.Context, req shopdomain.CreateRequest) (*domain.PreviewResult, error) {
	if err := s.schemaReady(migration.Tables(migration.BrandTables, migration.ShopTables)...); err != nil {
		return nil, err
	}
	key := brandkey.Normalize(req.ShopName)
	if key == "" {
		return nil, invalidInput("shop name does not produce a brand key", nil)
	}

	known, err := s.lookupBrand(ctx, key)
	if err != nil {
		return nil, err
	}
	internalCount, err := s.shops.CountActiveForBrand(ctx, key)
	if err != nil {
		return nil, storageError(err)
	}

	result := chainscore.Score(scoreInput(req, known, internalCount), s.rules.Rules())
	return &domain.PreviewResult{
		BrandKey:           key,
		KnownStatus:        known.Status,
		InternalCount:      internalCount,
		KnownLocationCount: knownCount(known),
		Mode:               s.mode,
		Result:             result,
	}, nil
}

// lookupBrand returns the registry record for key, or an unknown record
// when the brand has never been seen.
func (s *Service) lookupBrand(ctx context.Context, key string) (*branddomain.Brand, error) {
	return lookupBrandWith(ctx, s.brands, key)
}

func lookupBrandWith(ctx context.Context, brands branddomain.Service, key string) (*branddomain.Brand, error) {
	record, err := brands.Get(ctx, key)
	switch {
	case errors.Is(err, branddomain.ErrNotFound):
		return &branddomain.Brand{BrandKey: key, Status: branddomain.StatusUnknown}, nil
	case err != nil:
		return nil, brandError(err)
	}
	return record, nil
}

func (s *Service) schemaReady(tables ...string) error {
	if s.schema == nil {
		return nil
	}
	if err := s.schema.Ready(tables...); err != nil {
		return &domain.Error{
			Kind:    domain.KindSchemaNotReady,
			Message: "storage is not migrated yet",
			Err:     err,
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, event notify.Event) {
	event.OccurredAt = s.clock.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn("moderator notification failed",
			zap.String("event", string(event.Kind)),
			zap.String("brand_key", event.BrandKey),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, actorID, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actor := strings.TrimSpace(actorID)
	target := targetID
	if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, action, targetType, &target, metadata); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func scoreInput(req shopdomain.CreateRequest, known *branddomain.Brand, internalCount int64) chainscore.Input {
	return chainscore.Input{
		ShopName:               req.ShopName,
		WebsiteURL:             req.WebsiteURL,
		InternalCount:          int(internalCount),
		ChainAttestation:       chainscore.ParseAttestation(req.ChainAttestation),
		EstimatedLocationCount: chainscore.ParseLocationEstimate(req.EstimatedLocationCount),
		KnownBrandStatus:       chainscore.BrandStatus(known.Status),
		KnownLocationCount:     knownCount(known),
	}
}

func knownCount(record *branddomain.Brand) int {
	if record == nil || record.KnownLocationCount == nil {
		return 0
	}
	return *record.KnownLocationCount
}

func invalidInput(message string, err error) error {
	return &domain.Error{Kind: domain.KindInvalidInput, Message: message, Err: err}
}

// storageError wraps an unexpected persistence failure, keeping missing
// tables distinct from everything else.
func storageError(err error) error {
	var enfErr *domain.Error
	if errors.As(err, &enfErr) {
		return err
	}
	if db.IsSchemaError(err) {
		return &domain.Error{Kind: domain.KindSchemaNotReady, Message: "storage is not migrated yet", Err: err}
	}
	return &domain.Error{Kind: domain.KindInternal, Err: err}
}

func brandError(err error) error {
	switch {
	case errors.Is(err, branddomain.ErrNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Message: "brand not found", Err: err}
	case errors.Is(err, branddomain.ErrInvalidBrandKey),
		errors.Is(err, branddomain.ErrInvalidStatus),
		errors.Is(err, branddomain.ErrInvalidAction),
		errors.Is(err, branddomain.ErrInvalidActor):
		return invalidInput(err.Error(), err)
	default:
		return storageError(err)
	}
}

func submissionError(err error) error {
	switch {
	case errors.Is(err, submissiondomain.ErrNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Message: "submission not found", Err: err}
	case errors.Is(err, submissiondomain.ErrAlreadyReviewed):
		return &domain.Error{Kind: domain.KindAlreadyReviewed, Message: "submission was already reviewed", Err: err}
	case errors.Is(err, submissiondomain.ErrInvalidPayload):
		return &domain.Error{Kind: domain.KindInvalidPayload, Message: "stored submission payload is unreadable", Err: err}
	case errors.Is(err, submissiondomain.ErrInvalidID),
		errors.Is(err, submissiondomain.ErrInvalidStatus),
		errors.Is(err, submissiondomain.ErrInvalidDecision),
		errors.Is(err, submissiondomain.ErrInvalidSubmitter),
		errors.Is(err, submissiondomain.ErrInvalidReviewer),
		errors.Is(err, submissiondomain.ErrInvalidBrandKey),
		errors.Is(err, submissiondomain.ErrInvalidNote),
		errors.Is(err, submissiondomain.ErrMissingShopID):
		return invalidInput(err.Error(), err)
	case shopdomain.IsValidationError(err):
		return invalidInput(err.Error(), err)
	default:
		return storageError(err)
	}
}

func shopError(err error) error {
	if shopdomain.IsValidationError(err) {
		return invalidInput(err.Error(), err)
	}
	return storageError(err)
}

var _ domain.Service = (*Service)(nil)
