package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medhelp-app/medhelp/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	password := "correct horse battery"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestUsersRequiresAdmin(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil, nil, nil, nil, 0)

	for _, role := range []string{"", auth.RolePatient, auth.RoleDoctor} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/users", nil)
		if role != "" {
			req.Header.Set("X-Role", role)
		}
		rec := httptest.NewRecorder()
		h.Users(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("role %q: status = %d, want 403", role, rec.Code)
		}
	}
}

func TestUsersRejectsUnknownRoleFilter(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil, nil, nil, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/users?role=superuser", nil)
	req.Header.Set("X-Role", auth.RoleAdmin)
	rec := httptest.NewRecorder()
	h.Users(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	token, err := signer.Sign(auth.Claims{
		Sub:  "user-1",
		Role: auth.RoleDoctor,
		Name: "Dr. Rahim",
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Role != auth.RoleDoctor || claims.Name != "Dr. Rahim" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRotatingSigner(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	keys := map[string]*rsa.PrivateKey{
		keyIDFromPublicKey(&keyA.PublicKey): keyA,
		keyIDFromPublicKey(&keyB.PublicKey): keyB,
	}
	signer, err := NewRotatingRS256Signer(keys, "")
	if err != nil {
		t.Fatalf("new rotating signer: %v", err)
	}
	if !signer.CanRotate() {
		t.Fatal("rotating signer must report CanRotate")
	}
	if len(signer.JWKS()) != 2 {
		t.Fatalf("expected 2 JWKS entries, got %d", len(signer.JWKS()))
	}

	token, err := signer.Sign(auth.Claims{
		Sub:  "user-2",
		Role: auth.RolePatient,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "user-2" {
		t.Fatalf("unexpected sub: %s", claims.Sub)
	}

	// Tokens signed before a rotation still verify by kid.
	otherKid := keyIDFromPublicKey(&keyB.PublicKey)
	if err := signer.SetActiveKid(otherKid); err != nil {
		t.Fatalf("set active kid: %v", err)
	}
	if _, err := signer.Verify(token); err != nil {
		t.Fatalf("verify after rotation: %v", err)
	}

	if err := signer.SetActiveKid("missing"); err == nil {
		t.Fatal("expected error for unknown kid")
	}
}

func TestRotatingSignerConcurrentRotate(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kidA := keyIDFromPublicKey(&keyA.PublicKey)
	kidB := keyIDFromPublicKey(&keyB.PublicKey)
	signer, err := NewRotatingRS256Signer(map[string]*rsa.PrivateKey{kidA: keyA, kidB: keyB}, kidA)
	if err != nil {
		t.Fatalf("new rotating signer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			kid := kidA
			if i%2 == 0 {
				kid = kidB
			}
			if err := signer.SetActiveKid(kid); err != nil {
				t.Errorf("set active kid: %v", err)
				return
			}
		}
	}()

	claims := auth.Claims{
		Sub: "user-3",
		Iat: time.Now().Unix(),
		Exp: time.Now().Add(time.Hour).Unix(),
	}
	for i := 0; i < 50; i++ {
		token, err := signer.Sign(claims)
		if err != nil {
			t.Fatalf("sign under rotation: %v", err)
		}
		if _, err := signer.Verify(token); err != nil {
			t.Fatalf("verify under rotation: %v", err)
		}
	}
	<-done
}
