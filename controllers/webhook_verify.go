package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrTimestampOutsideWindow = errors.New("timestamp outside allowed window")
	ErrInvalidSignature       = errors.New("invalid signature")
)

// signatureWindow bounds how stale a signed webhook may be (replay protection).
const signatureWindow = 5 * time.Minute

// verifyWebhookSignature checks the rail's HMAC-SHA256 signature over
// "<timestamp>.<body>" using a constant-time compare.
func verifyWebhookSignature(secret, timestampHeader, signatureHeader string, body []byte, now time.Time) error {
	tsHeader := strings.TrimSpace(timestampHeader)
	sigHeader := strings.TrimSpace(signatureHeader)

	tsInt, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	ts := time.Unix(tsInt, 0).UTC()

	now = now.UTC()
	if ts.Before(now.Add(-signatureWindow)) || ts.After(now.Add(signatureWindow)) {
		return ErrTimestampOutsideWindow
	}

	providedSig, err := hex.DecodeString(sigHeader)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(tsHeader))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)

	if !hmac.Equal(providedSig, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignWebhook computes the hex signature for "<timestamp>.<body>".
// Used by tests and local tooling that simulates the rail.
func SignWebhook(secret, timestampHeader string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestampHeader))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
