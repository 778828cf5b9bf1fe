package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("export-1", "seating/exam-1.csv")
	require.NoError(t, err)
	assert.NotContains(t, token, "/")

	jobID, name, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "export-1", jobID)
	assert.Equal(t, "seating/exam-1.csv", name)
	assert.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	issued := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, _, err := signer.Generate("export-1", "timetable/cse-3-a.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	assert.True(t, errors.Is(err, ErrTokenExpired))

	jobID, name, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "export-1", jobID)
	assert.Equal(t, "timetable/cse-3-a.pdf", name)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("export-1", "seating/exam-1.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	assert.True(t, errors.Is(err, ErrTokenInvalid))

	payload, mac, _ := strings.Cut(token, ".")
	forged, _, _ := strings.Cut(mustToken(t, signer, "export-2"), ".")
	_, _, _, err = signer.Parse(forged+"."+mac, false)
	assert.True(t, errors.Is(err, ErrTokenInvalid))

	for _, bad := range []string{"", "nodot", payload + ".%%%", "a.b"} {
		_, _, _, err = signer.Parse(bad, false)
		assert.True(t, errors.Is(err, ErrTokenInvalid), bad)
	}
}

func TestSignedURLSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("export-1", "x.csv")
	assert.Error(t, err)
}

func mustToken(t *testing.T, signer *SignedURLSigner, jobID string) string {
	t.Helper()
	token, _, err := signer.Generate(jobID, "seating/exam-1.csv")
	require.NoError(t, err)
	return token
}
