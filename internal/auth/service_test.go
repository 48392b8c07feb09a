package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/config"
)

type fakeUserRepo struct {
	users  map[string]*User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User), nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *User) error {
	if _, exists := r.users[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func testConfig() *config.Config {
	return &config.Config{
		JWTAccessSecret:   "test-secret",
		JWTAccessTTLHours: 1,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		FullName: "Sara Benali",
		Email:    "sara@example.com",
		Phone:    "0612345678",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Role != "customer" {
		t.Errorf("role = %q, want %q", user.Role, "customer")
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in clear")
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "sara@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("access token is empty")
	}

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["email"] != "sara@example.com" {
		t.Errorf("token email = %v, want sara@example.com", claims["email"])
	}
	if claims["role"] != "customer" {
		t.Errorf("token role = %v, want customer", claims["role"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testConfig())
	ctx := context.Background()

	req := RegisterRequest{FullName: "Sara Benali", Email: "sara@example.com", Password: "correct horse"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	if _, err := svc.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("second Register error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{FullName: "Sara Benali", Email: "sara@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "sara@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login unknown user error = %v, want ErrInvalidCredentials", err)
	}
}
