package session

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
	"github.com/adityanagar10/buzzline/backend/pkg/auth"
)

const historyWriteTimeout = 5 * time.Second

// maxUsernameSuffix bounds the deterministic disambiguation of derived
// usernames for federated sign-ups.
const maxUsernameSuffix = 50

type IdentityRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id int64) (*domain.Identity, error)
	FindByGoogleLink(ctx context.Context, email, subjectID string) (*domain.Identity, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, identity *domain.Identity) error
	StoreGoogleLink(ctx context.Context, identityID int64, subjectID, email string) error
	UpsertSession(ctx context.Context, identityID int64, refreshToken string, device domain.DeviceContext) error
	DeleteSession(ctx context.Context, identityID int64, deviceID string) (bool, error)
	SessionsByIdentity(ctx context.Context, identityID int64) ([]domain.DeviceSession, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	FindByID(ctx context.Context, id int64) (*domain.Profile, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
}

type HistoryRecorder interface {
	Append(ctx context.Context, rec domain.LoginRecord) error
	ListByIdentity(ctx context.Context, identityID int64, limit int) ([]domain.LoginRecord, error)
}

type TokenCache interface {
	PutAccessToken(ctx context.Context, identityID int64, token string, ttl time.Duration) error
	GetAccessToken(ctx context.Context, identityID int64) (string, error)
	DeleteAccessToken(ctx context.Context, identityID int64) error
}

type FederatedVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.FederatedClaims, error)
}

// Disconnector closes live connections for an identity on sign-out.
type Disconnector interface {
	DisconnectIdentity(identityID int64, reason string)
}

type Config struct {
	AccessTokenTTL time.Duration
	BcryptCost     int
	StoreTimeout   time.Duration
}

// Service orchestrates the sign-in, sign-up, sign-out and account-link
// flows across the durable identity store and the ephemeral token cache.
type Service struct {
	identities   IdentityRepository
	profiles     ProfileRepository
	history      HistoryRecorder
	cache        TokenCache
	issuer       *auth.Issuer
	google       FederatedVerifier
	disconnector Disconnector // optional, may be nil
	cfg          Config
}

func NewService(
	identities IdentityRepository,
	profiles ProfileRepository,
	history HistoryRecorder,
	cache TokenCache,
	issuer *auth.Issuer,
	google FederatedVerifier,
	disconnector Disconnector,
	cfg Config,
) *Service {
	return &Service{
		identities:   identities,
		profiles:     profiles,
		history:      history,
		cache:        cache,
		issuer:       issuer,
		google:       google,
		disconnector: disconnector,
		cfg:          cfg,
	}
}

// LoginResult is the outcome of a successful login flow.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.PublicUser
}

// SignInWithPassword authenticates by email-or-username plus password.
// The lock gate applies regardless of password correctness.
func (s *Service) SignInWithPassword(ctx context.Context, identifier, password string, device domain.DeviceContext) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.E(domain.KindValidation, "identifier and password are required")
	}

	sctx, cancel := s.storeCtx(ctx)
	identity, err := s.identities.FindByIdentifier(sctx, identifier)
	cancel()
	if err != nil {
		return nil, storeErr("identity lookup", err)
	}
	if identity == nil {
		return nil, domain.E(domain.KindInvalidCredentials, "invalid credentials")
	}

	if domain.IsLockedAt(identity, time.Now()) {
		s.recordAttempt(ctx, identity.ID, device, domain.MethodPassword, domain.OutcomeLocked)
		return nil, domain.E(domain.KindAccountLocked, "too many login attempts, account is locked")
	}

	if identity.PasswordHash == "" || !auth.CheckPasswordHash(password, identity.PasswordHash) {
		s.recordAttempt(ctx, identity.ID, device, domain.MethodPassword, domain.OutcomeFailed)
		return nil, domain.E(domain.KindInvalidCredentials, "invalid credentials")
	}

	profile, err := s.profileOf(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.completeLogin(ctx, identity, profile, device, domain.MethodPassword)
}

type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// SignUpWithPassword registers a new identity with a hashed password and
// logs it in. Conflict errors name whichever field is actually taken.
func (s *Service) SignUpWithPassword(ctx context.Context, in SignUpInput, device domain.DeviceContext) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	existing, err := s.identities.FindByEmail(sctx, in.Email)
	cancel()
	if err != nil {
		return nil, storeErr("identity lookup", err)
	}
	if existing != nil {
		return nil, domain.E(domain.KindConflict, "email already in use")
	}

	sctx, cancel = s.storeCtx(ctx)
	taken, err := s.identities.UsernameTaken(sctx, in.Username)
	cancel()
	if err != nil {
		return nil, storeErr("username lookup", err)
	}
	if taken {
		return nil, domain.E(domain.KindConflict, "username already taken")
	}

	// Hashing is an explicit step of this use case; the plaintext goes no
	// further than this call.
	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "failed to hash password", err)
	}

	profile := &domain.Profile{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CreatedIP: device.IPAddress,
	}
	identity := &domain.Identity{
		Email:              in.Email,
		Username:           in.Username,
		PasswordHash:       hash,
		Role:               domain.RoleUser,
		RegistrationMethod: domain.MethodPassword,
	}
	if err := s.createAccount(ctx, identity, profile); err != nil {
		return nil, err
	}

	return s.completeLogin(ctx, identity, profile, device, domain.MethodPassword)
}

// SignInOrUpWithGoogle verifies a Google ID token, then signs in the
// linked identity, rejects an unlinked identity with the same email, or
// registers a fresh account.
func (s *Service) SignInOrUpWithGoogle(ctx context.Context, rawIDToken string, device domain.DeviceContext) (*LoginResult, error) {
	if s.google == nil {
		return nil, domain.E(domain.KindUnsupportedProvider, "google sign-in is not configured")
	}
	if rawIDToken == "" {
		return nil, domain.E(domain.KindValidation, "provider token is required")
	}

	claims, err := s.google.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidToken, "provider token verification failed", err)
	}
	email := strings.ToLower(claims.Email)

	sctx, cancel := s.storeCtx(ctx)
	linked, err := s.identities.FindByGoogleLink(sctx, email, claims.Subject)
	cancel()
	if err != nil {
		return nil, storeErr("identity lookup", err)
	}
	if linked != nil {
		// The lock applies to every authentication method, federated included.
		if domain.IsLockedAt(linked, time.Now()) {
			s.recordAttempt(ctx, linked.ID, device, domain.MethodGoogle, domain.OutcomeLocked)
			return nil, domain.E(domain.KindAccountLocked, "too many login attempts, account is locked")
		}
		profile, err := s.profileOf(ctx, linked)
		if err != nil {
			return nil, err
		}
		return s.completeLogin(ctx, linked, profile, device, domain.MethodGoogle)
	}

	sctx, cancel = s.storeCtx(ctx)
	existing, err := s.identities.FindByEmail(sctx, email)
	cancel()
	if err != nil {
		return nil, storeErr("identity lookup", err)
	}
	if existing != nil {
		// An account with this email exists but is not linked to this
		// google subject. Refuse the silent takeover; the owner must use
		// the explicit link flow.
		return nil, domain.E(domain.KindConflict, "email already in use")
	}

	username, err := s.resolveUsername(ctx, domain.DeriveUsername(email, claims.Subject))
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		AvatarURL: claims.AvatarURL,
		CreatedIP: device.IPAddress,
	}
	identity := &domain.Identity{
		Email:              email,
		Username:           username,
		Role:               domain.RoleUser,
		GoogleSubjectID:    claims.Subject,
		GoogleEmail:        email,
		RegistrationMethod: domain.MethodGoogle,
		IsEmailVerified:    true,
	}
	if err := s.createAccount(ctx, identity, profile); err != nil {
		return nil, err
	}

	return s.completeLogin(ctx, identity, profile, device, domain.MethodGoogle)
}

// SignOut removes the device's durable session and clears the identity's
// cached token. The cache slot is shared by all of the identity's devices,
// so their fast-path checks are revoked too.
func (s *Service) SignOut(ctx context.Context, identityID int64, deviceID string) error {
	sctx, cancel := s.storeCtx(ctx)
	identity, err := s.identities.FindByID(sctx, identityID)
	cancel()
	if err != nil {
		return storeErr("identity lookup", err)
	}
	if identity == nil {
		return domain.E(domain.KindUnauthorized, "cannot sign out an unknown identity")
	}

	sctx, cancel = s.storeCtx(ctx)
	removed, err := s.identities.DeleteSession(sctx, identityID, deviceID)
	cancel()
	if err != nil {
		return storeErr("session delete", err)
	}
	if !removed {
		return domain.E(domain.KindUnauthorized, "no active session for this device")
	}

	cctx, cancel := s.storeCtx(context.WithoutCancel(ctx))
	if err := s.cache.DeleteAccessToken(cctx, identityID); err != nil {
		log.Printf("[SESSION] Warning: failed to clear cached token for identity %d: %v", identityID, err)
	}
	cancel()

	if s.disconnector != nil {
		s.disconnector.DisconnectIdentity(identityID, "signed out")
	}

	return nil
}

// LinkAccount attaches a verified federated identity to an existing
// account. The provider-asserted email must equal the account's email.
func (s *Service) LinkAccount(ctx context.Context, identityID int64, provider, rawToken string) error {
	if provider != domain.ProviderGoogle {
		return domain.E(domain.KindUnsupportedProvider, "unsupported social login provider")
	}
	if s.google == nil {
		return domain.E(domain.KindUnsupportedProvider, "google sign-in is not configured")
	}

	sctx, cancel := s.storeCtx(ctx)
	identity, err := s.identities.FindByID(sctx, identityID)
	cancel()
	if err != nil {
		return storeErr("identity lookup", err)
	}
	if identity == nil {
		return domain.E(domain.KindUnauthorized, "could not find any account to link")
	}
	if domain.HasProviderLink(identity, provider) {
		return domain.E(domain.KindConflict, "account already linked")
	}

	claims, err := s.google.Verify(ctx, rawToken)
	if err != nil {
		return domain.Wrap(domain.KindInvalidToken, "provider token verification failed", err)
	}
	if !strings.EqualFold(claims.Email, identity.Email) {
		return domain.E(domain.KindAuthorization, "cannot link account: email does not match")
	}

	if claims.AvatarURL != "" {
		actx, cancel := s.storeCtx(ctx)
		if err := s.profiles.UpdateAvatar(actx, identity.ProfileID, claims.AvatarURL); err != nil {
			log.Printf("[SESSION] Warning: failed to update avatar for profile %d: %v", identity.ProfileID, err)
		}
		cancel()
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.identities.StoreGoogleLink(sctx, identity.ID, claims.Subject, strings.ToLower(claims.Email))
	cancel()
	if err != nil {
		return storeErr("link write", err)
	}
	return nil
}

// ActiveSessions lists the identity's device sessions.
func (s *Service) ActiveSessions(ctx context.Context, identityID int64) ([]domain.DeviceSession, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	sessions, err := s.identities.SessionsByIdentity(sctx, identityID)
	if err != nil {
		return nil, storeErr("session lookup", err)
	}
	return sessions, nil
}

// LoginHistory lists recent login attempts within the retention window.
func (s *Service) LoginHistory(ctx context.Context, identityID int64, limit int) ([]domain.LoginRecord, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	records, err := s.history.ListByIdentity(sctx, identityID, limit)
	if err != nil {
		return nil, storeErr("history lookup", err)
	}
	return records, nil
}

// completeLogin is the shared tail of every successful authentication:
// issue both tokens, upsert the durable device session, overwrite the
// identity's cache slot, and record history. The durable write comes
// first so a crash can only leave a session without a cache entry, which
// just forces a re-authentication on the next fast-path check.
func (s *Service) completeLogin(ctx context.Context, identity *domain.Identity, profile *domain.Profile, device domain.DeviceContext, method string) (*LoginResult, error) {
	accessToken, err := s.issuer.IssueAccessToken(identity, profile)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "failed to issue access token", err)
	}
	refreshToken, err := s.issuer.IssueRefreshToken(identity)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "failed to issue refresh token", err)
	}

	// From here on the flow must run to completion even if the caller
	// abandons the request, or cache and durable store drift apart.
	ctx = context.WithoutCancel(ctx)

	sctx, cancel := s.storeCtx(ctx)
	err = s.identities.UpsertSession(sctx, identity.ID, refreshToken, device)
	cancel()
	if err != nil {
		return nil, storeErr("session write", err)
	}

	// The cache slot is per-identity: this overwrite revokes the fast
	// path for tokens held by the identity's other devices.
	cctx, cancel := s.storeCtx(ctx)
	err = s.cache.PutAccessToken(cctx, identity.ID, accessToken, s.cfg.AccessTokenTTL)
	cancel()
	if err != nil {
		// Unlike history, a missing cache slot breaks revocation, so
		// this failure is fatal to the login.
		return nil, domain.Wrap(domain.KindUnavailable, "session cache write failed", err)
	}

	s.recordAttempt(ctx, identity.ID, device, method, domain.OutcomeSuccess)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         domain.PublicView(identity, profile),
	}, nil
}

// createAccount persists a new profile and then its owning identity.
func (s *Service) createAccount(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	sctx, cancel := s.storeCtx(ctx)
	err := s.profiles.Create(sctx, profile)
	cancel()
	if err != nil {
		return storeErr("profile write", err)
	}

	identity.ProfileID = profile.ID

	sctx, cancel = s.storeCtx(ctx)
	err = s.identities.Create(sctx, identity)
	cancel()
	if err != nil {
		return storeErr("identity write", err)
	}
	return nil
}

// resolveUsername finds a free variant of the derived username by
// appending an incrementing numeric suffix.
func (s *Service) resolveUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; i <= maxUsernameSuffix; i++ {
		sctx, cancel := s.storeCtx(ctx)
		taken, err := s.identities.UsernameTaken(sctx, candidate)
		cancel()
		if err != nil {
			return "", storeErr("username lookup", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = domain.FitUsername(base, strconv.Itoa(i))
	}
	return "", domain.E(domain.KindConflict, "username already taken")
}

// recordAttempt appends a history record without blocking the caller.
// Failures are logged and swallowed; they never undo a login.
func (s *Service) recordAttempt(ctx context.Context, identityID int64, device domain.DeviceContext, method, outcome string) {
	if s.history == nil {
		return
	}
	rec := domain.LoginRecord{
		IdentityID: identityID,
		IPAddress:  device.IPAddress,
		UserAgent:  device.UserAgent,
		DeviceID:   device.DeviceID,
		Method:     method,
		Outcome:    outcome,
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	go func() {
		defer cancel()
		if err := s.history.Append(hctx, rec); err != nil {
			log.Printf("[SESSION] Warning: failed to record login history for identity %d: %v", identityID, err)
		}
	}()
}

func (s *Service) profileOf(ctx context.Context, identity *domain.Identity) (*domain.Profile, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	profile, err := s.profiles.FindByID(sctx, identity.ProfileID)
	if err != nil {
		return nil, storeErr("profile lookup", err)
	}
	return profile, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// storeErr maps store failures onto the taxonomy: repository-tagged
// errors pass through, deadline hits become ServiceUnavailable, the rest
// stay internal with their text kept out of responses.
func storeErr(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindUnavailable, op+" timed out", err)
	}
	return domain.Wrap(domain.KindInternal, op+" failed", err)
}

func validateSignUp(in SignUpInput) error {
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return domain.E(domain.KindValidation, "a valid email is required")
	}
	if !usernamePattern.MatchString(in.Username) {
		return domain.E(domain.KindValidation, "username must be 3-30 lowercase letters, digits or underscores")
	}
	if len(in.Password) < 8 {
		return domain.E(domain.KindValidation, "password must be at least 8 characters")
	}
	return nil
}
