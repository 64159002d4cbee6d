// Package service is the session façade: it runs each authentication-class
// operation as one unit of work and reports a stable outcome code.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"transapp-auth/internal/audit"
	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/credential"
	deviceservice "transapp-auth/internal/device/service"
	"transapp-auth/internal/registry"
	roleservice "transapp-auth/internal/role/service"
	tokenservice "transapp-auth/internal/sessiontoken/service"
	"transapp-auth/internal/store"
	"transapp-auth/internal/telemetry"
	telemetrydomain "transapp-auth/internal/telemetry/domain"
)

const instrumentationName = "transapp-auth/auth"

// Operation names used for spans, metrics, audit, and auth events.
const (
	OpJoin                  = "join"
	OpLogin                 = "login"
	OpLoginByIdentityToken  = "login_by_identity_token"
	OpLogout                = "logout"
	OpRemoveDevice          = "remove_device"
	OpSetPassword           = "set_password"
	OpSetPasswordByIdentity = "set_password_by_identity"
	OpSetPushAddress        = "set_push_address"
	OpGetPushAddress        = "get_push_address"
	OpGetProfile            = "get_profile"
	OpUpdateProfile         = "update_profile"
	OpCancelIdentity        = "cancel_identity"
	OpIsFeatureAllowed      = "is_feature_allowed"
	OpOverview              = "overview"
	OpResolveSessionToken   = "resolve_session_token"
	OpResolveIdentityToken  = "resolve_identity_token"
	OpSetDeviceLimit        = "set_device_limit"
	OpIsUniqueCarNo         = "is_unique_car_no"
	OpSetIdentityActive     = "set_identity_active"
	OpListDevices           = "list_devices"
	OpAuditTrail            = "audit_trail"
)

// DeviceInfo identifies the calling device. DeviceID is the raw client
// identifier; it is hashed before any lookup or write.
type DeviceInfo struct {
	Name        string
	DeviceID    string
	PushAddress string
}

// Service orchestrates the credential gate, device registry, token manager,
// and role resolver.
type Service struct {
	store    store.Store
	gate     *credential.Gate
	devices  *deviceservice.Registry
	tokens   *tokenservice.Manager
	roles    *roleservice.Resolver
	features *roleservice.FeatureGate
	limits   *registry.DeviceLimits

	audit      audit.AuditLogger
	events     telemetry.EventEmitter
	production bool

	tracer trace.Tracer
	ops    metric.Int64Counter
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAuditLogger replaces the default audit logger backed by the store's audit repository.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *Service) { s.audit = l }
}

// WithEventEmitter sends an auth event for every operation through e.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *Service) { s.events = e }
}

// WithProduction suppresses error detail in results.
func WithProduction(production bool) Option {
	return func(s *Service) { s.production = production }
}

// NewService returns a Service. Spans and metrics use the global OTel providers.
func NewService(
	st store.Store,
	gate *credential.Gate,
	devices *deviceservice.Registry,
	tokens *tokenservice.Manager,
	roles *roleservice.Resolver,
	features *roleservice.FeatureGate,
	limits *registry.DeviceLimits,
	opts ...Option,
) *Service {
	s := &Service{
		store:    st,
		gate:     gate,
		devices:  devices,
		tokens:   tokens,
		roles:    roles,
		features: features,
		limits:   limits,
		audit:    audit.NewLogger(st.Audit()),
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	ops, err := otel.Meter(instrumentationName).Int64Counter("auth.operations",
		metric.WithDescription("Session façade operations by outcome"))
	if err != nil {
		log.Printf("auth: create operations counter: %v", err)
	}
	s.ops = ops
	return s
}

// trail collects what an operation touched, for audit and telemetry.
type trail struct {
	identityID string
	deviceID   string
	// detached records the identity in metadata only; set when the identity
	// row no longer exists after the operation.
	detached bool
}

// execute runs fn in one unit of work and fills out.Code. Token fields of out
// are cleared when fn fails.
func (s *Service) execute(ctx context.Context, op string, out *authdomain.Result, fn func(ctx context.Context, tx store.Tx, tr *trail) error) {
	ctx, span := s.tracer.Start(ctx, "auth."+op)
	defer span.End()

	tr := &trail{}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, tx, tr)
	})
	code := authdomain.CodeFor(err)
	if err != nil {
		*out = authdomain.Result{}
		if !s.production {
			out.Detail = err.Error()
		}
	}
	out.Code = code

	if code == authdomain.CodeServerError {
		log.Printf("auth: %s: %v", op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "server error")
	}
	span.SetAttributes(attribute.String("auth.outcome", code.String()))
	s.record(ctx, op, code, tr)
}

func (s *Service) record(ctx context.Context, op string, code authdomain.Code, tr *trail) {
	if s.ops != nil {
		s.ops.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", code.String()),
		))
	}

	meta := map[string]string{"code": code.String()}
	if tr.deviceID != "" {
		meta["device_id"] = tr.deviceID
	}
	identityID := tr.identityID
	if tr.detached {
		meta["identity_id"] = identityID
		identityID = ""
	}
	metaJSON, _ := json.Marshal(meta)

	if audit.Tracked(op) && s.audit != nil {
		ar := audit.ForOperation(op, code == authdomain.CodeSuccess)
		s.audit.LogEvent(ctx, identityID, ar.Action, ar.Resource, string(metaJSON))
	}
	telemetry.EmitAsync(ctx, s.events, &telemetrydomain.AuthEvent{
		IdentityID: tr.identityID,
		DeviceID:   tr.deviceID,
		Operation:  op,
		Outcome:    code.String(),
		Metadata:   metaJSON,
		CreatedAt:  s.now().UTC(),
	})
}
