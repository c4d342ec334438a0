package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxAuthAge is the freshness window for widget auth data.
const maxAuthAge = 24 * time.Hour

// Verifier checks that a flat map of login-widget claims was signed by
// the platform with this bot's token and is still fresh. It fails closed:
// any missing or malformed input yields false, never a panic or error.
type Verifier struct {
	botToken string
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// VerifierOption defines a function type to modify the Verifier instance.
type VerifierOption func(*Verifier)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowTime = nowFunc
	}
}

// NewVerifier creates a Verifier for the given bot token. An empty token
// produces a verifier that rejects every input.
func NewVerifier(botToken string, options ...VerifierOption) *Verifier {
	v := &Verifier{
		botToken: botToken,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Configured reports whether a bot token is present.
func (v *Verifier) Configured() bool {
	return v.botToken != ""
}

// Verify checks the claims' "hash" field against
// HMAC-SHA256(SHA256(botToken), check_string) where check_string is the
// remaining claims sorted by key and joined as "key=value" lines. When an
// auth_date claim is present it must parse as unix seconds and be at most
// 24h old; signature and freshness must both pass.
func (v *Verifier) Verify(claims map[string]string) bool {
	if v.botToken == "" {
		return false
	}
	theirHash := claims[ClaimHash]
	if theirHash == "" {
		return false
	}

	keys := make([]string, 0, len(claims))
	for k := range claims {
		if k == ClaimHash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+claims[k])
	}

	secret := sha256.Sum256([]byte(v.botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	ourHash := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(ourHash), []byte(strings.ToLower(theirHash))) != 1 {
		return false
	}
	return v.fresh(claims)
}

func (v *Verifier) fresh(claims map[string]string) bool {
	raw, ok := claims[ClaimAuthDate]
	if !ok {
		return true
	}
	authDate, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return v.nowTime().Sub(time.Unix(authDate, 0)) <= maxAuthAge
}
