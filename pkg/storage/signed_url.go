package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner issues and checks download tokens for stored exports. A token binds
// the export job id, the stored file name and an expiry under an HMAC-SHA256 signature:
//
//	base64url(jobID "\n" unixExpiry "\n" name) "." base64url(mac)
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer; ttl defaults to a day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, name string) (string, time.Time, error) {
	if jobID == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("job id and file name are required")
	}
	if strings.Contains(jobID, "\n") {
		return "", time.Time{}, fmt.Errorf("job id must be a single line")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), name}, "\n")
	token := encode([]byte(payload)) + "." + encode(s.sign(payload))
	return token, expiresAt, nil
}

// Parse verifies a token and returns what it was issued for. allowExpired skips the
// expiry check so cleanup can still locate files behind stale links.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, name string, expiresAt time.Time, err error) {
	rawPayload, rawMAC, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	payload, err := decode(rawPayload)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	mac, err := decode(rawMAC)
	if err != nil || !hmac.Equal(mac, s.sign(string(payload))) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	parts := strings.SplitN(string(payload), "\n", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
