package auth

import (
	"context"
	"errors"
	"testing"

	"cashplet/internal/memory"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	u, err := svc.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if got := svc.GetSession(); got == nil || got.ID != u.User.ID {
		t.Fatalf("sign up must open a session")
	}

	svc.SignOut()
	if svc.GetSession() != nil {
		t.Fatalf("session survives sign out")
	}

	if _, err := svc.SignIn(ctx, "a@b.c", "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if _, err := svc.SignIn(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
}

func TestFriendlyErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	_, err := svc.SignUp(ctx, "a@b.c", "short")
	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Message != MsgWeakPassword {
		t.Fatalf("weak password: got %v, want %q", err, MsgWeakPassword)
	}

	if _, err := svc.SignUp(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, err = svc.SignUp(ctx, "a@b.c", "secret2")
	if !errors.As(err, &authErr) || authErr.Message != MsgEmailInUse {
		t.Fatalf("duplicate email: got %v, want %q", err, MsgEmailInUse)
	}

	_, err = svc.SignIn(ctx, "nobody@b.c", "secret1")
	if !errors.As(err, &authErr) || authErr.Message != MsgInvalidCredentials {
		t.Fatalf("unknown email: got %v, want %q", err, MsgInvalidCredentials)
	}
}

func TestOnAuthStateChange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	var seen []*User
	unsubscribe := svc.OnAuthStateChange(func(u *User) {
		seen = append(seen, u)
	})

	// Fires immediately after subscribing, with the signed-out state.
	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("initial callback = %+v, want one nil", seen)
	}

	u, err := svc.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if len(seen) != 2 || seen[1] == nil || seen[1].ID != u.User.ID {
		t.Fatalf("sign up transition not observed: %+v", seen)
	}

	svc.SignOut()
	if len(seen) != 3 || seen[2] != nil {
		t.Fatalf("sign out transition not observed: %+v", seen)
	}

	unsubscribe()
	if _, err := svc.SignIn(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("unsubscribed listener still firing")
	}
}

func TestTokenResolve(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	sess, err := svc.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess.Token == "" || sess.Token != svc.Token() {
		t.Fatalf("session token %q does not match service token %q", sess.Token, svc.Token())
	}
	got, ok := svc.Resolve(sess.Token)
	if !ok || got.ID != sess.User.ID {
		t.Fatalf("resolve = (%+v,%v), want current user", got, ok)
	}

	svc.SignOut()
	if _, ok := svc.Resolve(sess.Token); ok {
		t.Fatalf("token survives sign out")
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	sess, err := svc.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	svc.Revoke(sess.Token)
	if _, ok := svc.Resolve(sess.Token); ok {
		t.Fatalf("revoked token still resolves")
	}
	if svc.GetSession() != nil {
		t.Fatalf("current session survives revoking its own token")
	}
}
