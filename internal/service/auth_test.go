package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/luno/internal/apperror"
	"github.com/sakif/luno/internal/auth"
	"github.com/sakif/luno/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read, you can see exactly what the fake does.
type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[int64]*model.User
	byEmail map[string]*model.User
	nextID  int64

	// set to a non-nil error to simulate a database failure
	createErr  error
	getByIDErr error
	existsErr  error
	// skipExists makes ExistsByEmail lie, to simulate a concurrent insert
	// slipping between the pre-check and the INSERT
	skipExists bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[int64]*model.User),
		byEmail: make(map[string]*model.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, taken := f.byEmail[strings.ToLower(user.Email)]; taken {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.byID[user.ID] = &copied
	f.byEmail[strings.ToLower(user.Email)] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.skipExists {
		return false, nil
	}
	_, ok := f.byEmail[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, firstName, lastName string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.FirstName, u.LastName = firstName, lastName
	u.UpdatedAt = time.Now().UTC()
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, email string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return apperror.NotFound("user", email)
	}
	u.IsActive = active
	return nil
}

// countingRecorder remembers every outcome it was told about.
type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int // "register:success", "login:rejected", ...
}

func (r *countingRecorder) add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[key]++
}

func (r *countingRecorder) RecordRegistration(o string)   { r.add("register:" + o) }
func (r *countingRecorder) RecordLogin(o string)          { r.add("login:" + o) }
func (r *countingRecorder) RecordPasswordChange(o string) { r.add("password:" + o) }
func (r *countingRecorder) RecordTokenRejected()          { r.add("token:rejected") }
func (r *countingRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[key]
}

const testSecret = "service-test-secret-at-least-32-chars"

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   testSecret,
		Issuer:   "luno",
		Audience: "luno-client",
		TTL:      24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, opts ...Option) (*AuthService, *auth.TokenService) {
	t.Helper()
	ts := newTestTokenService(t)

	// Cost 4 is bcrypt minimum, makes tests fast
	ps := auth.NewPasswordServiceForTest()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, ts, ps, logger, opts...), ts
}

func annLee() RegisterInput {
	return RegisterInput{
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "a@x.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

// mustRegister registers in and fails the test on error.
func mustRegister(t *testing.T, svc *AuthService, in RegisterInput) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return res
}

// appErr asserts err is an *apperror.AppError of the given kind and returns it.
func appErr(t *testing.T, err error, kind error) *apperror.AppError {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
	var ae *apperror.AppError
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *apperror.AppError", err)
	}
	return ae
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)

	in := annLee()
	in.Email = "  A@X.com "
	in.FirstName = " Ann "

	res := mustRegister(t, svc, in)

	if res.Token == "" {
		t.Fatal("Register() returned empty Token")
	}
	if res.User.Email != "a@x.com" {
		t.Errorf("User.Email = %q, want normalized %q", res.User.Email, "a@x.com")
	}
	if res.User.FirstName != "Ann" || res.User.FullName != "Ann Lee" {
		t.Errorf("User names = %q / %q", res.User.FirstName, res.User.FullName)
	}
	if res.User.IsEmailVerified {
		t.Error("new users must not be email-verified")
	}
	if res.User.LastLoginAt != nil {
		t.Error("registration must not set LastLoginAt")
	}

	stored, _ := repo.GetByEmail(context.Background(), "a@x.com")
	if !stored.IsActive {
		t.Error("new users must be active")
	}
	if stored.PasswordHash == "secret1" || !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Errorf("password not stored as a bcrypt hash: %q", stored.PasswordHash)
	}

	claims, err := ts.Validate(res.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != strconv.FormatInt(res.User.ID, 10) {
		t.Errorf("sub = %q, want %d", claims.Subject, res.User.ID)
	}
	if !claims.ExpiresAt.Time.Equal(res.ExpiresAt) {
		t.Errorf("expiresAt %v differs from exp claim %v", res.ExpiresAt, claims.ExpiresAt.Time)
	}
}

func TestRegister_DuplicateEmailAnyCase(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	mustRegister(t, svc, annLee())

	in := annLee()
	in.Email = "A@X.COM"
	_, err := svc.Register(context.Background(), in)

	ae := appErr(t, err, apperror.ErrConflict)
	if ae.Message != "Email already exists" {
		t.Errorf("Message = %q, want %q", ae.Message, "Email already exists")
	}
}

func TestRegister_ConcurrentInsertLosesWithSameError(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	mustRegister(t, svc, annLee())

	// The pre-check misses the existing row; the INSERT still collides.
	repo.skipExists = true
	_, err := svc.Register(context.Background(), annLee())

	ae := appErr(t, err, apperror.ErrConflict)
	if ae.Message != "Email already exists" {
		t.Errorf("Message = %q, want %q", ae.Message, "Email already exists")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"missing first name", func(in *RegisterInput) { in.FirstName = "   " }, "firstName"},
		{"long last name", func(in *RegisterInput) { in.LastName = strings.Repeat("x", 51) }, "lastName"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "password"},
		{"confirmation mismatch", func(in *RegisterInput) { in.ConfirmPassword = "secret2" }, "confirmPassword"},
		{
			// 30 runes but 90 bytes: passes max=72 runes, fails bcrypt's byte limit
			"password over 72 bytes",
			func(in *RegisterInput) {
				p := strings.Repeat("密", 30)
				in.Password, in.ConfirmPassword = p, p
			},
			"password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			svc, _ := newTestAuthService(t, repo)

			in := annLee()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)

			ae := appErr(t, err, apperror.ErrValidation)
			if ae.Field != tt.field {
				t.Errorf("Field = %q, want %q (message %q)", ae.Field, tt.field, ae.Message)
			}
			if len(repo.byID) != 0 {
				t.Error("no user should be stored after a validation failure")
			}
		})
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), annLee())
	if err == nil {
		t.Fatal("Register() should propagate repository errors")
	}
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		t.Errorf("infrastructure failures must not become client errors, got %v", ae)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, ts := newTestAuthService(t, repo, WithClock(func() time.Time { return fixed }))
	reg := mustRegister(t, svc, annLee())

	res, err := svc.Login(context.Background(), LoginInput{Email: "A@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if res.User.ID != reg.User.ID {
		t.Errorf("User.ID = %d, want %d", res.User.ID, reg.User.ID)
	}
	if res.User.LastLoginAt == nil || !res.User.LastLoginAt.Equal(fixed) {
		t.Errorf("LastLoginAt = %v, want %v", res.User.LastLoginAt, fixed)
	}
	stored, _ := repo.GetByID(context.Background(), reg.User.ID)
	if stored.LastLoginAt == nil {
		t.Error("LastLoginAt not persisted")
	}
	if id, ok := ts.SubjectID(res.Token); !ok || id != reg.User.ID {
		t.Errorf("SubjectID() = (%d, %v), want (%d, true)", id, ok, reg.User.ID)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	mustRegister(t, svc, annLee())

	inactive := annLee()
	inactive.Email = "gone@x.com"
	mustRegister(t, svc, inactive)
	if err := svc.SetActive(context.Background(), "gone@x.com", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	attempts := map[string]LoginInput{
		"wrong password":   {Email: "a@x.com", Password: "wrong-password"},
		"unknown email":    {Email: "nobody@x.com", Password: "secret1"},
		"inactive account": {Email: "gone@x.com", Password: "secret1"},
	}

	var messages []string
	for name, in := range attempts {
		_, err := svc.Login(context.Background(), in)
		ae := appErr(t, err, apperror.ErrInvalidCredentials)
		if ae.Field != "" {
			t.Errorf("%s: Field = %q, want empty", name, ae.Field)
		}
		messages = append(messages, ae.Message)
	}

	for _, m := range messages {
		if m != "Invalid email or password" {
			t.Errorf("Message = %q, want %q", m, "Invalid email or password")
		}
	}
}

func TestLogin_MissingFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.com"})
	appErr(t, err, apperror.ErrValidation)
}

func TestLogin_MetricsOutcomes(t *testing.T) {
	repo := newFakeUserRepo()
	rec := &countingRecorder{}
	svc, _ := newTestAuthService(t, repo, WithMetrics(rec))
	mustRegister(t, svc, annLee())

	_, _ = svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "secret1"})
	_, _ = svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "nope-nope"})
	_, _ = svc.Register(context.Background(), annLee())

	if got := rec.count("register:success"); got != 1 {
		t.Errorf("register:success = %d, want 1", got)
	}
	if got := rec.count("register:conflict"); got != 1 {
		t.Errorf("register:conflict = %d, want 1", got)
	}
	if got := rec.count("login:success"); got != 1 {
		t.Errorf("login:success = %d, want 1", got)
	}
	if got := rec.count("login:rejected"); got != 1 {
		t.Errorf("login:rejected = %d, want 1", got)
	}
}

// =========================================================================
// GetCurrentUser / UpdateProfile TESTS
// =========================================================================

func TestGetCurrentUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())

	p, err := svc.GetCurrentUser(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if p.Email != "a@x.com" || p.FullName != "Ann Lee" {
		t.Errorf("profile = %+v", p)
	}
}

func TestGetCurrentUser_NotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.GetCurrentUser(context.Background(), 404)

	ae := appErr(t, err, apperror.ErrNotFound)
	if ae.Message != "User not found" {
		t.Errorf("Message = %q, want %q", ae.Message, "User not found")
	}
}

func TestGetCurrentUser_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.getByIDErr = errors.New("connection reset")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.GetCurrentUser(context.Background(), 1)
	if err == nil || errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want an opaque infrastructure error", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())

	p, err := svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{FirstName: " Anne ", LastName: "Leigh"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if p.FirstName != "Anne" || p.LastName != "Leigh" || p.FullName != "Anne Leigh" {
		t.Errorf("profile = %+v", p)
	}
	if p.Email != "a@x.com" {
		t.Errorf("email changed to %q", p.Email)
	}
}

func TestUpdateProfile_Validation(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())

	_, err := svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{FirstName: "", LastName: "Lee"})

	ae := appErr(t, err, apperror.ErrValidation)
	if ae.Field != "firstName" {
		t.Errorf("Field = %q, want firstName", ae.Field)
	}
}

// =========================================================================
// ChangePassword TESTS
// =========================================================================

func TestChangePassword_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())
	ctx := context.Background()

	err := svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{
		CurrentPassword:    "secret1",
		NewPassword:        "secret2",
		ConfirmNewPassword: "secret2",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret2"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"}); !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("login with old password = %v, want ErrInvalidCredentials", err)
	}

	// No revocation: the token from registration is still valid.
	if _, err := ts.Validate(reg.Token); err != nil {
		t.Errorf("old token should survive a password change: %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())

	err := svc.ChangePassword(context.Background(), reg.User.ID, ChangePasswordInput{
		CurrentPassword:    "wrong",
		NewPassword:        "secret2",
		ConfirmNewPassword: "secret2",
	})

	ae := appErr(t, err, apperror.ErrValidation)
	if ae.Message != "Current password is incorrect" {
		t.Errorf("Message = %q, want %q", ae.Message, "Current password is incorrect")
	}
}

func TestChangePassword_ValidationErrors(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())

	tests := []struct {
		name  string
		in    ChangePasswordInput
		field string
	}{
		{"missing current", ChangePasswordInput{NewPassword: "secret2", ConfirmNewPassword: "secret2"}, "currentPassword"},
		{"short new", ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "abc", ConfirmNewPassword: "abc"}, "newPassword"},
		{"mismatch", ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmNewPassword: "secret3"}, "confirmNewPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(context.Background(), reg.User.ID, tt.in)
			ae := appErr(t, err, apperror.ErrValidation)
			if ae.Field != tt.field {
				t.Errorf("Field = %q, want %q", ae.Field, tt.field)
			}
		})
	}
}

// =========================================================================
// Deactivation TESTS
// =========================================================================

func TestDeactivatedUser_RejectedEverywhere(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	reg := mustRegister(t, svc, annLee())
	ctx := context.Background()

	if err := svc.SetActive(ctx, "A@X.com", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	// The token itself is still cryptographically fine...
	if _, err := ts.Validate(reg.Token); err != nil {
		t.Fatalf("token should still validate: %v", err)
	}

	// ...but every account operation refuses the user.
	if _, err := svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"}); !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("Login() = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.GetCurrentUser(ctx, reg.User.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCurrentUser() = %v, want ErrNotFound", err)
	}
	if _, err := svc.UpdateProfile(ctx, reg.User.ID, UpdateProfileInput{FirstName: "A", LastName: "B"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() = %v, want ErrNotFound", err)
	}
	err := svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{
		CurrentPassword: "secret1", NewPassword: "secret2", ConfirmNewPassword: "secret2",
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ChangePassword() = %v, want ErrNotFound", err)
	}

	// Reactivation restores access.
	if err := svc.SetActive(ctx, "a@x.com", true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	if _, err := svc.GetCurrentUser(ctx, reg.User.ID); err != nil {
		t.Errorf("GetCurrentUser() after reactivation = %v", err)
	}
}

func TestSetActive_UnknownEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	err := svc.SetActive(context.Background(), "nobody@x.com", false)
	appErr(t, err, apperror.ErrNotFound)

	err = svc.SetActive(context.Background(), "  ", false)
	appErr(t, err, apperror.ErrValidation)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	if err := svc.Logout(context.Background(), 12345); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}

// =========================================================================
// END-TO-END SCENARIO
// =========================================================================

// TestScenario_AnnLee walks the whole account lifecycle in the service layer:
// register, read the profile with the issued token's subject, fail a
// password change, and confirm the original password still works.
func TestScenario_AnnLee(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	ctx := context.Background()

	reg := mustRegister(t, svc, annLee())
	if reg.Token == "" || reg.User.Email != "a@x.com" {
		t.Fatalf("register result = %+v", reg)
	}

	id, ok := ts.SubjectID(reg.Token)
	if !ok {
		t.Fatal("T1 should carry a user id")
	}
	me, err := svc.GetCurrentUser(ctx, id)
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if me.FullName != "Ann Lee" {
		t.Errorf("FullName = %q, want %q", me.FullName, "Ann Lee")
	}

	err = svc.ChangePassword(ctx, id, ChangePasswordInput{
		CurrentPassword:    "wrong",
		NewPassword:        "secret2",
		ConfirmNewPassword: "secret2",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("ChangePassword(wrong current) = %v, want ErrValidation", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("original password should still log in: %v", err)
	}
}
