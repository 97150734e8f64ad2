package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	userID := uuid.NewString()

	issued, err := svc.Issue(ctx, IssueInput{
		UserID:      userID,
		Name:        "ci",
		Permissions: []Permission{PermissionRead, PermissionDeposit},
		Expiry:      "1D",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(issued.Secret, "sk_") {
		t.Fatalf("unexpected secret format: %s", issued.Secret)
	}
	if issued.Key.Prefix != issued.Secret[3:11] {
		t.Fatalf("prefix %q does not match secret %q", issued.Key.Prefix, issued.Secret)
	}

	identity, err := svc.Validate(ctx, issued.Secret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, identity.UserID)
	}
	if len(identity.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %v", identity.Permissions)
	}

	if _, err := svc.Validate(ctx, "sk_0000000000000000"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected no match, got %v", err)
	}
	if _, err := svc.Validate(ctx, "not-a-key"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected no match for malformed secret, got %v", err)
	}
}

func TestIssueInvalidInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	userID := uuid.NewString()

	if _, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "x", Permissions: []Permission{PermissionRead}, Expiry: "2W"}); !errors.Is(err, ErrInvalidExpiry) {
		t.Fatalf("expected invalid expiry, got %v", err)
	}
	if _, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "x", Permissions: nil, Expiry: "1D"}); !errors.Is(err, ErrInvalidPermission) {
		t.Fatalf("expected invalid permission, got %v", err)
	}
	if _, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "x", Permissions: []Permission{"admin"}, Expiry: "1D"}); !errors.Is(err, ErrInvalidPermission) {
		t.Fatalf("expected invalid permission, got %v", err)
	}
}

func TestIssueEnforcesActiveCap(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.NewString()

	var last Issued
	for i := 0; i < 5; i++ {
		var err error
		last, err = svc.Issue(ctx, IssueInput{UserID: userID, Name: "k", Permissions: []Permission{PermissionRead}, Expiry: "1D"})
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
	}

	if _, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "k6", Permissions: []Permission{PermissionRead}, Expiry: "1D"}); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected limit exceeded, got %v", err)
	}

	// Revoking one frees a slot.
	if err := svc.Revoke(ctx, userID, last.Key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "k6", Permissions: []Permission{PermissionRead}, Expiry: "1D"}); err != nil {
		t.Fatalf("issue after revoke: %v", err)
	}
}

func TestRotatePreconditions(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.NewString()

	issued, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "rot", Permissions: []Permission{PermissionTransfer}, Expiry: "1H"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still valid: rollover must not renew early.
	if _, err := svc.Rotate(ctx, userID, issued.Key.ID, "1D"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unexpired key, got %v", err)
	}

	expireKey(t, repo, issued.Key.ID)

	replacement, err := svc.Rotate(ctx, userID, issued.Key.ID, "1D")
	if err != nil {
		t.Fatalf("rotate expired key: %v", err)
	}
	if replacement.Key.Name != "rot" {
		t.Fatalf("expected inherited name, got %s", replacement.Key.Name)
	}
	if len(replacement.Key.Permissions) != 1 || replacement.Key.Permissions[0] != PermissionTransfer {
		t.Fatalf("expected inherited permissions, got %v", replacement.Key.Permissions)
	}

	// Revoked keys cannot be rolled over.
	if err := svc.Revoke(ctx, userID, issued.Key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Rotate(ctx, userID, issued.Key.ID, "1D"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for revoked key, got %v", err)
	}

	// Keys owned by someone else are invisible.
	if _, err := svc.Rotate(ctx, uuid.NewString(), replacement.Key.ID, "1D"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign key, got %v", err)
	}
}

func TestValidateIgnoresRevokedAndExpired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.NewString()

	issued, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "v", Permissions: []Permission{PermissionRead}, Expiry: "1H"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.Revoke(ctx, userID, issued.Key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Validate(ctx, issued.Secret); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected revoked key to not validate, got %v", err)
	}

	issued, err = svc.Issue(ctx, IssueInput{UserID: userID, Name: "v2", Permissions: []Permission{PermissionRead}, Expiry: "1H"})
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	expireKey(t, repo, issued.Key.ID)
	if _, err := svc.Validate(ctx, issued.Secret); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected expired key to not validate, got %v", err)
	}
}

func TestListDerivesStatus(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.NewString()

	active, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "active", Permissions: []Permission{PermissionRead}, Expiry: "1Y"})
	if err != nil {
		t.Fatalf("issue active: %v", err)
	}
	expired, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "expired", Permissions: []Permission{PermissionRead}, Expiry: "1H"})
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	expireKey(t, repo, expired.Key.ID)
	revoked, err := svc.Issue(ctx, IssueInput{UserID: userID, Name: "revoked", Permissions: []Permission{PermissionRead}, Expiry: "1Y"})
	if err != nil {
		t.Fatalf("issue revoked: %v", err)
	}
	if err := svc.Revoke(ctx, userID, revoked.Key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	infos, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	statuses := make(map[string]Status)
	for _, info := range infos {
		statuses[info.ID] = info.Status
	}
	if statuses[active.Key.ID] != StatusActive {
		t.Fatalf("expected active, got %s", statuses[active.Key.ID])
	}
	if statuses[expired.Key.ID] != StatusExpired {
		t.Fatalf("expected expired, got %s", statuses[expired.Key.ID])
	}
	if statuses[revoked.Key.ID] != StatusRevoked {
		t.Fatalf("expected revoked, got %s", statuses[revoked.Key.ID])
	}
}

// expireKey rewrites a stored key's expiry into the past.
func expireKey(t *testing.T, repo Repository, keyID string) {
	t.Helper()
	mem, ok := repo.(*memoryRepository)
	if !ok {
		t.Fatal("expireKey requires the in-memory repository")
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	key := mem.storage[keyID]
	key.ExpiresAt = time.Now().Add(-time.Minute)
	mem.storage[keyID] = key
}
