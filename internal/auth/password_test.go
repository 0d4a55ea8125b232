package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sungwon/newsletter/internal/storage"
)

type fakeUsers struct {
	users map[string]storage.User
	err   error
}

func newFakeUsers(t *testing.T, username, password string) (*fakeUsers, uuid.UUID) {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	id := uuid.New()
	return &fakeUsers{users: map[string]storage.User{
		username: {UserID: id, Username: username, PasswordHash: hash},
	}}, id
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (storage.User, error) {
	if f.err != nil {
		return storage.User{}, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return storage.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (storage.User, error) {
	for _, u := range f.users {
		if u.UserID == id {
			return u, nil
		}
	}
	return storage.User{}, pgx.ErrNoRows
}

func (f *fakeUsers) UpdateUserPassword(_ context.Context, arg storage.UpdateUserPasswordParams) error {
	for name, u := range f.users {
		if u.UserID == arg.UserID {
			u.PasswordHash = arg.PasswordHash
			f.users[name] = u
			return nil
		}
	}
	return pgx.ErrNoRows
}

func TestHashPassword_VerifiesOnlyOriginal(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$12$") {
		t.Errorf("hash = %q, want bcrypt cost 12", hash)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("VerifyPassword() rejected the original password")
	}
	if VerifyPassword(hash, "Correct horse battery staple") {
		t.Error("VerifyPassword() accepted a different password")
	}
}

func TestValidateCredentials(t *testing.T) {
	users, id := newFakeUsers(t, "admin", "everythinghastostartsomewhere")
	ctx := context.Background()

	got, err := ValidateCredentials(ctx, users, Credentials{Username: "admin", Password: "everythinghastostartsomewhere"})
	if err != nil {
		t.Fatalf("ValidateCredentials() error = %v", err)
	}
	if got != id {
		t.Errorf("user ID = %s, want %s", got, id)
	}

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"wrong password", Credentials{Username: "admin", Password: "nope"}},
		{"unknown user", Credentials{Username: "mallory", Password: "everythinghastostartsomewhere"}},
		{"empty", Credentials{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateCredentials(ctx, users, tt.creds)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestValidateCredentials_StorageError(t *testing.T) {
	users := &fakeUsers{err: errors.New("connection refused")}

	_, err := ValidateCredentials(context.Background(), users, Credentials{Username: "admin", Password: "x"})
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("error = %v, want a storage error", err)
	}
}

func TestChangePassword(t *testing.T) {
	users, id := newFakeUsers(t, "admin", "the-original-password")
	ctx := context.Background()

	if err := ChangePassword(ctx, users, id, "wrong-current-password", "a-brand-new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password: error = %v, want ErrInvalidCredentials", err)
	}
	if err := ChangePassword(ctx, users, id, "the-original-password", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: error = %v, want ErrWeakPassword", err)
	}
	if err := ChangePassword(ctx, users, id, "the-original-password", "a-brand-new-password"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := ValidateCredentials(ctx, users, Credentials{Username: "admin", Password: "a-brand-new-password"}); err != nil {
		t.Errorf("login with new password: error = %v", err)
	}
	if _, err := ValidateCredentials(ctx, users, Credentials{Username: "admin", Password: "the-original-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login with old password: error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{strings.Repeat("a", 11), true},
		{strings.Repeat("a", 12), false},
		{strings.Repeat("é", 12), false},
		{strings.Repeat("a", 128), false},
		{strings.Repeat("a", 129), true},
	}
	for _, tt := range tests {
		err := ValidateNewPassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateNewPassword(len=%d) error = %v, wantErr %v", len([]rune(tt.password)), err, tt.wantErr)
		}
	}
}
