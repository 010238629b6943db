package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/jobportal/auth-service/internal/domain"
	"github.com/jobportal/auth-service/internal/oauth"
	"github.com/jobportal/auth-service/internal/otp"
	"github.com/jobportal/auth-service/internal/token"
	"github.com/jobportal/auth-service/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

const testJWTKey = "usecase-test-secret-at-least-32-!"

// ---- fakes ----

// memUserRepo is an in-memory user store keyed by id and email.
type memUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	updateErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*domain.User)}
}

// uuid-shaped ids so the middleware's shape check also accepts them.
var testIDs = []string{
	"11111111-1111-4111-8111-111111111111",
	"22222222-2222-4222-8222-222222222222",
	"33333333-3333-4333-8333-333333333333",
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	u.ID = testIDs[r.nextID%len(testIDs)]
	r.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	r.byID[u.ID] = &cp
	return u, nil
}

func (r *memUserRepo) Update(_ context.Context, u *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.byID[id]
	return ok, nil
}

type fakeProfileRepo struct {
	created []*domain.Profile
	err     error
}

func (r *fakeProfileRepo) CreateProfile(_ context.Context, p *domain.Profile) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, p)
	return nil
}

type memBlacklist struct {
	revoked map[string]bool
	err     error
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{revoked: make(map[string]bool)}
}

func (b *memBlacklist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	if b.err != nil {
		return b.err
	}
	if b.revoked[jti] {
		return domain.ErrTokenRevoked
	}
	b.revoked[jti] = true
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	return b.revoked[jti], nil
}

type fakeEmailSender struct {
	lastTo      string
	lastSubject string
	lastBody    string
	sent        int
	err         error
}

func (s *fakeEmailSender) Send(_ context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.lastTo, s.lastSubject, s.lastBody = to, subject, body
	s.sent++
	return nil
}

type fakeGoogle struct {
	exchange func(ctx context.Context, code string) (string, error)
	userInfo func(ctx context.Context, accessToken string) (*oauth.UserInfo, error)
}

func (g *fakeGoogle) AuthURL(state string) string { return "https://example.com/auth?state=" + state }

func (g *fakeGoogle) Exchange(ctx context.Context, code string) (string, error) {
	return g.exchange(ctx, code)
}

func (g *fakeGoogle) UserInfo(ctx context.Context, accessToken string) (*oauth.UserInfo, error) {
	return g.userInfo(ctx, accessToken)
}

// ---- fixture ----

type fixture struct {
	uc        *usecase.AuthUsecase
	users     *memUserRepo
	profiles  *fakeProfileRepo
	blacklist *memBlacklist
	email     *fakeEmailSender
	google    *fakeGoogle
	codec     *token.Codec
}

func newFixture() *fixture {
	f := &fixture{
		users:     newMemUserRepo(),
		profiles:  &fakeProfileRepo{},
		blacklist: newMemBlacklist(),
		email:     &fakeEmailSender{},
		google:    &fakeGoogle{},
		codec:     token.NewCodec([]byte(testJWTKey)),
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	f.uc = usecase.NewAuthUsecase(
		f.users, f.profiles, f.blacklist, f.email, f.codec,
		otp.NewGenerator("jobportal-test", 5*time.Minute),
		f.google, logger, usecase.TTLs{},
	)
	return f
}

var otpPattern = regexp.MustCompile(`\d{6}`)

// lastOTP pulls the code out of the most recent email body.
func (f *fixture) lastOTP(t *testing.T) string {
	t.Helper()
	code := otpPattern.FindString(f.email.lastBody)
	if code == "" {
		t.Fatalf("no OTP in email body %q", f.email.lastBody)
	}
	return code
}

func (f *fixture) register(t *testing.T, email, password string) string {
	t.Helper()
	guest, err := f.uc.Register(context.Background(), usecase.RegisterInput{
		Email:    email,
		Name:     "Test User",
		Password: password,
		UserType: "applicant",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return guest
}

// ---- Register + VerifyOTP + Login ----

func TestRegisterVerifyLogin_EndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	guest := f.register(t, "a@x.com", "pw-secret-1")
	if guest == "" {
		t.Fatal("no guest token returned")
	}
	if len(f.profiles.created) != 1 {
		t.Fatalf("profiles created = %d, want 1", len(f.profiles.created))
	}
	if f.email.lastTo != "a@x.com" {
		t.Errorf("otp emailed to %q", f.email.lastTo)
	}

	pair, err := f.uc.VerifyOTP(ctx, guest, f.lastOTP(t))
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("incomplete token pair")
	}

	user, err := f.users.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if !user.IsVerified {
		t.Error("user not marked verified")
	}

	res, err := f.uc.Login(ctx, "a@x.com", "pw-secret-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Verified || res.Pair == nil {
		t.Errorf("login result = %+v, want verified pair", res)
	}
}

func TestRegister_GuestTokenCarriesIdentity(t *testing.T) {
	f := newFixture()

	guest := f.register(t, "a@x.com", "pw-secret-1")

	claims, err := f.codec.DecodeVerified(guest)
	if err != nil {
		t.Fatalf("decode guest: %v", err)
	}
	if claims.Kind != token.KindGuest {
		t.Errorf("kind = %q, want guest", claims.Kind)
	}
	if claims.Email != "a@x.com" || claims.UserID == "" || claims.UserType != "applicant" {
		t.Errorf("guest claims = %+v", claims)
	}
}

func TestRegister_ProfileFailure_Surfaced(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("profile table down")

	_, err := f.uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@x.com", Name: "n", Password: "pw-secret-1", UserType: "applicant",
	})
	if !errors.Is(err, domain.ErrProfileIncomplete) {
		t.Errorf("err = %v, want ErrProfileIncomplete", err)
	}
	if f.email.sent != 0 {
		t.Error("otp email sent despite failed registration")
	}
}

func TestVerifyOTP_WrongCode_ReturnsErrOTPMismatch(t *testing.T) {
	f := newFixture()
	guest := f.register(t, "a@x.com", "pw-secret-1")

	wrong := "000000"
	if f.lastOTP(t) == wrong {
		wrong = "111111"
	}
	_, err := f.uc.VerifyOTP(context.Background(), guest, wrong)
	if !errors.Is(err, domain.ErrOTPMismatch) {
		t.Errorf("err = %v, want ErrOTPMismatch", err)
	}
}

func TestVerifyOTP_ConsumedCode_CannotReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	guest := f.register(t, "a@x.com", "pw-secret-1")
	code := f.lastOTP(t)

	if _, err := f.uc.VerifyOTP(ctx, guest, code); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if _, err := f.uc.VerifyOTP(ctx, guest, code); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Errorf("replay err = %v, want ErrOTPMismatch", err)
	}
}

func TestVerifyOTP_ExpiredGuestToken_ReturnsErrTokenExpired(t *testing.T) {
	f := newFixture()
	f.register(t, "a@x.com", "pw-secret-1")

	expired, err := f.codec.Issue(token.Claims{
		UserID: testIDs[0], Email: "a@x.com", Kind: token.KindGuest,
	}, -time.Minute)
	if err != nil {
		t.Fatalf("issue expired guest: %v", err)
	}

	_, err = f.uc.VerifyOTP(context.Background(), expired, f.lastOTP(t))
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyOTP_AccessTokenRejected(t *testing.T) {
	// An access token must not drive the OTP flow even though it
	// carries the same identity fields.
	f := newFixture()
	f.register(t, "a@x.com", "pw-secret-1")

	access, err := f.codec.Issue(token.Claims{
		UserID: testIDs[0], Email: "a@x.com", UserType: "applicant", Kind: token.KindAccess,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	_, err = f.uc.VerifyOTP(context.Background(), access, f.lastOTP(t))
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyOTP_RotationInvalidatesOldCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a@x.com", "pw-secret-1")
	firstCode := f.lastOTP(t)

	// Logging in again re-enters verification and rotates the code.
	res, err := f.uc.Login(ctx, "a@x.com", "pw-secret-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Verified {
		t.Fatal("unverified user reported verified")
	}
	secondCode := f.lastOTP(t)

	if _, err := f.uc.VerifyOTP(ctx, res.GuestToken, firstCode); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Errorf("stale code err = %v, want ErrOTPMismatch", err)
	}
	if _, err := f.uc.VerifyOTP(ctx, res.GuestToken, secondCode); err != nil {
		t.Errorf("current code rejected: %v", err)
	}
}

// ---- Login ----

func TestLogin_WrongPassword_ReturnsErrInvalidCredentials(t *testing.T) {
	f := newFixture()
	f.register(t, "a@x.com", "pw-secret-1")

	res, err := f.uc.Login(context.Background(), "a@x.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if res != nil {
		t.Errorf("tokens issued for bad credentials: %+v", res)
	}
}

func TestLogin_UnknownEmail_ReturnsErrInvalidCredentials(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Login(context.Background(), "nobody@x.com", "pw")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

// ---- Logout + Refresh ----

func verifiedPair(t *testing.T, f *fixture) *usecase.TokenPair {
	t.Helper()
	ctx := context.Background()
	guest := f.register(t, "a@x.com", "pw-secret-1")
	pair, err := f.uc.VerifyOTP(ctx, guest, f.lastOTP(t))
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	return pair
}

func TestLogoutThenRefresh_Rejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pair := verifiedPair(t, f)

	if err := f.uc.Logout(ctx, pair.Refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.uc.Refresh(ctx, pair.Refresh); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Errorf("refresh after logout err = %v, want ErrTokenRevoked", err)
	}
}

func TestLogout_Repeated_ReturnsErrTokenRevoked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pair := verifiedPair(t, f)

	if err := f.uc.Logout(ctx, pair.Refresh); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := f.uc.Logout(ctx, pair.Refresh); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Errorf("second logout err = %v, want ErrTokenRevoked", err)
	}
}

func TestLogout_AccessTokenRejected(t *testing.T) {
	f := newFixture()
	pair := verifiedPair(t, f)

	if err := f.uc.Logout(context.Background(), pair.Access); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	f := newFixture()
	pair := verifiedPair(t, f)

	next, err := f.uc.Refresh(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := f.codec.DecodeVerified(next.Access)
	if err != nil {
		t.Fatalf("decode refreshed access: %v", err)
	}
	if claims.Kind != token.KindAccess || claims.Email != "a@x.com" {
		t.Errorf("refreshed access claims = %+v", claims)
	}
}

func TestRefresh_GuestTokenRejected(t *testing.T) {
	f := newFixture()
	guest := f.register(t, "a@x.com", "pw-secret-1")

	if _, err := f.uc.Refresh(context.Background(), guest); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

// ---- Password reset ----

func TestPasswordReset_EndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	verifiedPair(t, f)

	guest, err := f.uc.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}

	resetToken, uid, err := f.uc.VerifyPasswordResetOTP(ctx, guest, f.lastOTP(t))
	if err != nil {
		t.Fatalf("verify reset otp: %v", err)
	}
	if uid == "" {
		t.Fatal("empty uid")
	}

	if err := f.uc.CommitPasswordReset(ctx, uid, resetToken, "new-password-9"); err != nil {
		t.Fatalf("commit reset: %v", err)
	}
	if f.email.lastSubject != "Reset Your Password" {
		t.Errorf("confirmation subject = %q", f.email.lastSubject)
	}

	if _, err := f.uc.Login(ctx, "a@x.com", "pw-secret-1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Error("old password still accepted")
	}
	if _, err := f.uc.Login(ctx, "a@x.com", "new-password-9"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestPasswordReset_UnknownEmail_ReturnsErrUserNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.uc.RequestPasswordReset(context.Background(), "nobody@x.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCommitPasswordReset_UIDMismatch_Rejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	verifiedPair(t, f)

	guest, err := f.uc.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	resetToken, _, err := f.uc.VerifyPasswordResetOTP(ctx, guest, f.lastOTP(t))
	if err != nil {
		t.Fatalf("verify reset otp: %v", err)
	}

	err = f.uc.CommitPasswordReset(ctx, testIDs[1], resetToken, "new-password-9")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestCommitPasswordReset_GuestTokenRejected(t *testing.T) {
	// The un-augmented guest token must not authorize a commit.
	f := newFixture()
	ctx := context.Background()
	verifiedPair(t, f)

	guest, err := f.uc.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	user, _ := f.users.FindByEmail(ctx, "a@x.com")

	err = f.uc.CommitPasswordReset(ctx, user.ID, guest, "new-password-9")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

// ---- Change password (authenticated) ----

func TestChangePassword_TwoPhase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	verifiedPair(t, f)
	user, _ := f.users.FindByEmail(ctx, "a@x.com")

	if err := f.uc.RequestPasswordChange(ctx, user.ID); err != nil {
		t.Fatalf("request change: %v", err)
	}

	if err := f.uc.ConfirmPasswordChange(ctx, user.ID, f.lastOTP(t), "changed-pw-77"); err != nil {
		t.Fatalf("confirm change: %v", err)
	}

	if _, err := f.uc.Login(ctx, "a@x.com", "changed-pw-77"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestConfirmPasswordChange_WrongCode_LeavesPassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	verifiedPair(t, f)
	user, _ := f.users.FindByEmail(ctx, "a@x.com")

	if err := f.uc.RequestPasswordChange(ctx, user.ID); err != nil {
		t.Fatalf("request change: %v", err)
	}

	wrong := "000000"
	if f.lastOTP(t) == wrong {
		wrong = "111111"
	}
	if err := f.uc.ConfirmPasswordChange(ctx, user.ID, wrong, "changed-pw-77"); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Errorf("err = %v, want ErrOTPMismatch", err)
	}
	if _, err := f.uc.Login(ctx, "a@x.com", "pw-secret-1"); err != nil {
		t.Errorf("original password rejected after failed change: %v", err)
	}
}

// ---- Google OAuth ----

func TestGoogleCallback_NewUser_AutoRegistersVerified(t *testing.T) {
	f := newFixture()
	f.google.exchange = func(_ context.Context, code string) (string, error) {
		return "provider-token", nil
	}
	f.google.userInfo = func(_ context.Context, _ string) (*oauth.UserInfo, error) {
		return &oauth.UserInfo{Email: "g@x.com", Name: "G User"}, nil
	}

	pair, created, err := f.uc.GoogleCallback(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Error("incomplete pair")
	}

	user, err := f.users.FindByEmail(context.Background(), "g@x.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.Provider != domain.ProviderGoogle || !user.IsVerified {
		t.Errorf("user = %+v, want google provider, verified", user)
	}
	if len(f.profiles.created) != 1 {
		t.Errorf("profiles created = %d, want 1", len(f.profiles.created))
	}
}

func TestGoogleCallback_ExistingUser_LogsIn(t *testing.T) {
	f := newFixture()
	verifiedPair(t, f)
	f.google.exchange = func(_ context.Context, _ string) (string, error) {
		return "provider-token", nil
	}
	f.google.userInfo = func(_ context.Context, _ string) (*oauth.UserInfo, error) {
		return &oauth.UserInfo{Email: "a@x.com", Name: "Test User"}, nil
	}

	pair, created, err := f.uc.GoogleCallback(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if created {
		t.Error("created = true for existing user")
	}
	if pair == nil {
		t.Fatal("no pair issued")
	}
}

func TestGoogleCallback_ExchangeFailure_NoUserCreated(t *testing.T) {
	f := newFixture()
	f.google.exchange = func(_ context.Context, _ string) (string, error) {
		return "", domain.ErrOAuthExchange
	}

	_, _, err := f.uc.GoogleCallback(context.Background(), "bad-code")
	if !errors.Is(err, domain.ErrOAuthExchange) {
		t.Errorf("err = %v, want ErrOAuthExchange", err)
	}
	if len(f.users.byID) != 0 {
		t.Error("user created despite failed exchange")
	}
}

func TestGoogleCallback_NoEmail_ReturnsErrOAuthUserInfo(t *testing.T) {
	f := newFixture()
	f.google.exchange = func(_ context.Context, _ string) (string, error) {
		return "provider-token", nil
	}
	f.google.userInfo = func(_ context.Context, _ string) (*oauth.UserInfo, error) {
		return nil, domain.ErrOAuthUserInfo
	}

	_, _, err := f.uc.GoogleCallback(context.Background(), "code-1")
	if !errors.Is(err, domain.ErrOAuthUserInfo) {
		t.Errorf("err = %v, want ErrOAuthUserInfo", err)
	}
	if len(f.users.byID) != 0 {
		t.Error("user created despite missing userinfo")
	}
}

// sanity check that stored hashes are bcrypt, not plaintext
func TestRegister_StoresBcryptHash(t *testing.T) {
	f := newFixture()
	f.register(t, "a@x.com", "pw-secret-1")

	user, _ := f.users.FindByEmail(context.Background(), "a@x.com")
	if user.PasswordHash == "pw-secret-1" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw-secret-1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}
