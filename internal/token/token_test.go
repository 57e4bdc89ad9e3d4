package token

import (
	"errors"
	"testing"
	"time"

	"github.com/accountd/accountd/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const testKey = "token-test-secret-at-least-32ch!!"

func newTestService(now time.Time) *Service {
	s := NewService([]byte(testKey))
	s.now = func() time.Time { return now }
	return s
}

func TestIssueAccessToken_MarkerFromLastLogin(t *testing.T) {
	lastLogin := int64(1700000123456) // ms
	user := &domain.User{ID: "user-1", Email: "a@b.com", LastLogin: &lastLogin}

	svc := newTestService(time.Now())
	raw, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if want := lastLogin / 1000; claims.LastLogin != want {
		t.Errorf("marker = %d, want %d", claims.LastLogin, want)
	}
	if claims.UserID != "user-1" || claims.Email != "a@b.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestIssueAccessToken_MarkerDefaultsToNow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc := newTestService(now)

	raw, err := svc.IssueAccessToken(&domain.User{ID: "user-1", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.LastLogin != now.Unix() {
		t.Errorf("marker = %d, want %d", claims.LastLogin, now.Unix())
	}
}

func TestVerify_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-3 * time.Hour)
	raw, err := newTestService(issuedAt).IssueAccessToken(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = newTestService(time.Now()).Verify(raw)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_ValidWithinTTL(t *testing.T) {
	issuedAt := time.Now()
	raw, err := newTestService(issuedAt).IssueAccessToken(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	later := newTestService(issuedAt.Add(defaultTTL - time.Minute))
	if _, err := later.Verify(raw); err != nil {
		t.Errorf("token expired before its 2h TTL: %v", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	other := NewService([]byte("a-different-key-that-is-32-chars"))
	raw, err := other.IssueAccessToken(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = newTestService(time.Now()).Verify(raw)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	_, err := newTestService(time.Now()).Verify("not.a.jwt")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	// alg=none tokens must never pass.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := newTestService(time.Now()).Verify(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestIssueResetToken_NoFreshnessMarker(t *testing.T) {
	svc := newTestService(time.Now())
	raw, err := svc.IssueResetToken("user-9")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-9" {
		t.Errorf("user id = %q", claims.UserID)
	}
	if claims.LastLogin != 0 || claims.Email != "" {
		t.Errorf("reset token carries extra claims: %+v", claims)
	}
}
