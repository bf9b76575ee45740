package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"splendoura/backend/internal/audit"
	"splendoura/backend/internal/security"
)

func TestRotate_HappyPathLinksLineage(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	pair := env.mustLogin(t, "user-1")
	rotated, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{IP: "10.0.0.2"})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.SessionID == pair.SessionID {
		t.Fatal("rotation must allocate a new session id")
	}
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatal("rotation must return a full token pair")
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}

	old := env.sessions.get(pair.SessionID)
	if old.RevokedAt == nil {
		t.Fatal("old session must be revoked")
	}
	if old.LastUsedAt == nil {
		t.Error("rotation must stamp last_used_at on the old session")
	}
	if old.ReplacedBySessionID == nil || *old.ReplacedBySessionID != rotated.SessionID {
		t.Fatal("old session must link forward to its replacement")
	}

	current := env.sessions.get(rotated.SessionID)
	if current == nil || !current.Active(time.Now().UTC()) {
		t.Fatal("replacement session must be live")
	}
	if current.TokenHash != security.HashToken(rotated.RefreshToken) {
		t.Error("replacement row must store the new token's hash")
	}

	// The new access token authenticates; the old session's does not.
	if _, err := env.svc.Authenticate(ctx, rotated.AccessToken); err != nil {
		t.Fatalf("authenticate with rotated token: %v", err)
	}
	if _, err := env.svc.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("old access token after rotation: got %v, want ErrUnauthorized", err)
	}
}

func TestRotate_IsSingleUse(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	pair := env.mustLogin(t, "user-1")
	if _, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{}); err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{}); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("replay %d: got %v, want ErrSessionRevoked", i, err)
		}
	}
	if !env.audit.saw(audit.ActionReuseDetected) {
		t.Error("replay must be recorded as reuse detection")
	}
}

func TestRotate_TheftRevokesForwardChain(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	// A -> B -> C via two rotations.
	a := env.mustLogin(t, "user-1")
	b, err := env.svc.Rotate(ctx, a.RefreshToken, DeviceMeta{})
	if err != nil {
		t.Fatalf("rotate a->b: %v", err)
	}
	c, err := env.svc.Rotate(ctx, b.RefreshToken, DeviceMeta{})
	if err != nil {
		t.Fatalf("rotate b->c: %v", err)
	}

	rows := env.sessions.count()

	// Replaying A's token after C is live revokes the whole remaining chain.
	if _, err := env.svc.Rotate(ctx, a.RefreshToken, DeviceMeta{}); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("replay of a: got %v, want ErrSessionRevoked", err)
	}
	for _, id := range []string{a.SessionID, b.SessionID, c.SessionID} {
		if row := env.sessions.get(id); row.RevokedAt == nil {
			t.Errorf("session %s must be revoked after theft detection", id)
		}
	}
	if env.sessions.count() != rows {
		t.Error("theft detection must not issue a new session")
	}
	if _, err := env.svc.Authenticate(ctx, c.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("access token of revoked chain head: got %v, want ErrUnauthorized", err)
	}
	// C's token cannot rotate either, and doing so revokes nothing new.
	if _, err := env.svc.Rotate(ctx, c.RefreshToken, DeviceMeta{}); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("rotate on revoked c: got %v, want ErrSessionRevoked", err)
	}
}

func TestRotate_Rejections(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	if _, err := env.svc.Rotate(ctx, "not-a-token", DeviceMeta{}); !errors.Is(err, security.ErrInvalidToken) {
		t.Errorf("garbage: got %v, want ErrInvalidToken", err)
	}

	pair := env.mustLogin(t, "user-1")
	if _, err := env.svc.Rotate(ctx, pair.AccessToken, DeviceMeta{}); !errors.Is(err, security.ErrWrongTokenType) {
		t.Errorf("access token: got %v, want ErrWrongTokenType", err)
	}

	// Correctly signed refresh token for a session that was never stored.
	orphan, _, err := env.tokens.IssueRefresh("user-1", "feedfacefeedface")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := env.svc.Rotate(ctx, orphan, DeviceMeta{}); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("orphan: got %v, want ErrUnknownSession", err)
	}
}

func TestRotate_TokenMismatchRevokesDefensively(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	pair := env.mustLogin(t, "user-1")
	env.sessions.setTokenHash(pair.SessionID, security.HashToken("some-other-token"))

	if _, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{}); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("got %v, want ErrTokenMismatch", err)
	}
	if row := env.sessions.get(pair.SessionID); row.RevokedAt == nil {
		t.Error("hash mismatch must revoke the session")
	}
}

func TestRotate_ExpiredSessionIsRevoked(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	pair := env.mustLogin(t, "user-1")
	env.sessions.setExpiry(pair.SessionID, time.Now().UTC().Add(-time.Minute))

	if _, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
	if row := env.sessions.get(pair.SessionID); row.RevokedAt == nil {
		t.Error("expired session must be revoked on presentation")
	}
}

func TestRotate_ConcurrentRaceHasOneWinner(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	pair := env.mustLogin(t, "user-1")

	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		winners []*TokenPair
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rotated, err := env.svc.Rotate(ctx, pair.RefreshToken, DeviceMeta{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				winners = append(winners, rotated)
				return
			}
			if !errors.Is(err, ErrSessionRevoked) && !errors.Is(err, ErrTokenMismatch) {
				t.Errorf("loser saw unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	// The race itself revokes the winner's replacement: losers replaying the
	// old token walk the lineage forward. The winner's session row must
	// exist and be linked from the original.
	old := env.sessions.get(pair.SessionID)
	if old.ReplacedBySessionID == nil || *old.ReplacedBySessionID != winners[0].SessionID {
		t.Error("original session must link to the single winner")
	}
}
