package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked_token:"

// RevocationStore denylists token JTIs in Redis until their natural
// expiry. Sign-out writes here; the auth middleware reads.
type RevocationStore struct {
	rdb *redis.Client
}

func NewRevocationStore(rdb *redis.Client) *RevocationStore {
	return &RevocationStore{rdb: rdb}
}

// Revoke marks the JTI invalid for ttl. A non-positive ttl means the
// token already expired and there is nothing to record.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()

	if err != nil {
		return false, err
	}

	return n > 0, nil
}
