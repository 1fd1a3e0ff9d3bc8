// Package webhooksig verifies svix-style webhook signatures: an HMAC-SHA256
// over "<id>.<timestamp>.<body>" using a base64 secret, delivered in the
// svix-id / svix-timestamp / svix-signature headers.
package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names used by the delivery channel.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const secretPrefix = "whsec_"

var ErrMissingHeaders = errors.New("missing webhook signature headers")
var ErrStaleTimestamp = errors.New("webhook timestamp outside tolerance")
var ErrBadSignature = errors.New("webhook signature verification failed")

// Verifier checks inbound deliveries against a shared signing secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
}

// NewVerifier builds a Verifier from the provider's signing secret
// ("whsec_" + base64 key). tolerance bounds the accepted clock skew; <= 0
// selects five minutes.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("webhooksig: decode secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("webhooksig: empty secret")
	}
	return &Verifier{key: key, tolerance: tolerance}, nil
}

// VerifyRequest extracts the signature headers from h and verifies payload.
func (v *Verifier) VerifyRequest(h http.Header, payload []byte) error {
	id := h.Get(HeaderID)
	ts := h.Get(HeaderTimestamp)
	sig := h.Get(HeaderSignature)
	if id == "" || ts == "" || sig == "" {
		return ErrMissingHeaders
	}
	return v.Verify(id, ts, sig, payload)
}

// Verify checks a single delivery. The signature header may carry multiple
// space-separated "v1,<base64>" entries (key rotation); any valid one
// accepts the delivery.
func (v *Verifier) Verify(id, timestamp, signature string, payload []byte) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return ErrStaleTimestamp
	}

	expected := v.sign(id, timestamp, payload)
	for _, entry := range strings.Fields(signature) {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign produces the signature entry for a delivery, in the same format the
// provider sends. Exported for tests and local tooling.
func (v *Verifier) Sign(id, timestamp string, payload []byte) string {
	return "v1," + v.sign(id, timestamp, payload)
}

func (v *Verifier) sign(id, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
