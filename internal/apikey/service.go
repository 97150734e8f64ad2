package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxActiveKeys = 5

	secretPrefix = "sk_"
	secretBytes  = 24
	prefixLen    = 8
)

var (
	// ErrLimitExceeded indicates the user already holds the maximum number of
	// active credentials.
	ErrLimitExceeded = errors.New("maximum active api keys reached")

	// ErrInvalidExpiry indicates an unrecognized TTL class.
	ErrInvalidExpiry = errors.New("invalid expiry format")

	// ErrInvalidPermission indicates an unknown or empty permission set.
	ErrInvalidPermission = errors.New("invalid permissions")

	// ErrNoMatch indicates no active credential matches the presented secret.
	ErrNoMatch = errors.New("api key does not match")
)

// Service manages credential issuance, rotation, revocation and validation.
type Service struct {
	repo Repository
}

// NewService creates a new credential service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IssueInput captures data required to issue a credential.
type IssueInput struct {
	UserID      string
	Name        string
	Permissions []Permission
	Expiry      string
}

// Issued carries the stored key plus the one-time plaintext secret.
type Issued struct {
	Key    Key
	Secret string
}

// Issue creates a credential and returns its plaintext secret exactly once.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Issued, error) {
	if err := validatePermissions(input.Permissions); err != nil {
		return Issued{}, err
	}
	ttl, err := expiryDuration(input.Expiry)
	if err != nil {
		return Issued{}, err
	}

	now := time.Now().UTC()
	active, err := s.repo.CountActive(ctx, input.UserID, now)
	if err != nil {
		return Issued{}, err
	}
	if active >= maxActiveKeys {
		return Issued{}, ErrLimitExceeded
	}

	return s.create(ctx, input.UserID, input.Name, input.Permissions, now.Add(ttl))
}

// Rotate issues a replacement for a credential the caller owns that is past
// its expiry and not revoked. Still-valid credentials cannot be rolled over.
func (s *Service) Rotate(ctx context.Context, userID, expiredKeyID, expiry string) (Issued, error) {
	ttl, err := expiryDuration(expiry)
	if err != nil {
		return Issued{}, err
	}

	now := time.Now().UTC()
	old, err := s.repo.Get(ctx, userID, expiredKeyID)
	if err != nil {
		return Issued{}, err
	}
	if old.Revoked || old.ExpiresAt.After(now) {
		return Issued{}, ErrNotFound
	}

	active, err := s.repo.CountActive(ctx, userID, now)
	if err != nil {
		return Issued{}, err
	}
	if active >= maxActiveKeys {
		return Issued{}, ErrLimitExceeded
	}

	return s.create(ctx, userID, old.Name, old.Permissions, now.Add(ttl))
}

// Revoke marks a credential the caller owns as revoked.
func (s *Service) Revoke(ctx context.Context, userID, keyID string) error {
	return s.repo.MarkRevoked(ctx, userID, keyID)
}

// Identity is the result of a successful credential validation.
type Identity struct {
	UserID      string
	Permissions []Permission
}

// Validate resolves a plaintext secret to its owner and permissions. The
// lookup prefix narrows candidates before any hash comparison, so validation
// never scans the whole credential table; the prefix itself carries
// negligible entropy toward guessing the full secret.
func (s *Service) Validate(ctx context.Context, secret string) (Identity, error) {
	prefix, ok := lookupPrefix(secret)
	if !ok {
		return Identity{}, ErrNoMatch
	}

	candidates, err := s.repo.FindActiveByPrefix(ctx, prefix, time.Now().UTC())
	if err != nil {
		return Identity{}, err
	}
	for _, key := range candidates {
		if bcrypt.CompareHashAndPassword(key.Hash, []byte(secret)) == nil {
			return Identity{UserID: key.UserID, Permissions: key.Permissions}, nil
		}
	}
	return Identity{}, ErrNoMatch
}

// KeyInfo annotates a stored credential with its derived status.
type KeyInfo struct {
	Key
	Status Status
}

// List returns all credentials owned by the user with status computed at read
// time.
func (s *Service) List(ctx context.Context, userID string) ([]KeyInfo, error) {
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]KeyInfo, 0, len(keys))
	for _, key := range keys {
		out = append(out, KeyInfo{Key: key, Status: key.StatusAt(now)})
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, userID, name string, perms []Permission, expiresAt time.Time) (Issued, error) {
	secret, prefix, err := generateSecret()
	if err != nil {
		return Issued{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Issued{}, err
	}

	key := Key{
		ID:          uuid.NewString(),
		UserID:      userID,
		Prefix:      prefix,
		Hash:        hash,
		Name:        name,
		Permissions: perms,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return Issued{}, err
	}
	return Issued{Key: key, Secret: secret}, nil
}

func validatePermissions(perms []Permission) error {
	if len(perms) == 0 {
		return ErrInvalidPermission
	}
	for _, p := range perms {
		switch p {
		case PermissionRead, PermissionDeposit, PermissionTransfer:
		default:
			return ErrInvalidPermission
		}
	}
	return nil
}

func expiryDuration(class string) (time.Duration, error) {
	switch class {
	case "1H":
		return time.Hour, nil
	case "1D":
		return 24 * time.Hour, nil
	case "1M":
		return 30 * 24 * time.Hour, nil
	case "1Y":
		return 365 * 24 * time.Hour, nil
	default:
		return 0, ErrInvalidExpiry
	}
}

func generateSecret() (secret, prefix string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	random := hex.EncodeToString(buf)
	return secretPrefix + random, random[:prefixLen], nil
}

func lookupPrefix(secret string) (string, bool) {
	if !strings.HasPrefix(secret, secretPrefix) || len(secret) < len(secretPrefix)+prefixLen {
		return "", false
	}
	return secret[len(secretPrefix) : len(secretPrefix)+prefixLen], true
}
