package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TOTP parameters follow RFC 6238 with the defaults every authenticator app
// ships: HMAC-SHA1, 6 digits, 30 second steps. Verification accepts one
// step of clock skew in either direction.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 1

	backupCodeLen = 8
)

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTOTPSecret returns a fresh random secret encoded as unpadded
// base32, the form authenticator apps expect for manual entry.
func GenerateTOTPSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32NoPad.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URI encoded into the QR code shown
// at 2FA setup. The format must stay compatible with Google Authenticator
// and friends: otpauth://totp/Issuer:account?secret=...&issuer=...
func ProvisioningURI(secretBase32, account, issuer string) string {
	label := url.PathEscape(issuer + ":" + account)
	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", fmt.Sprintf("%d", totpPeriod))
	v.Set("digits", fmt.Sprintf("%d", totpDigits))
	v.Set("algorithm", "SHA1")
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyTOTP checks a candidate code against the secret at the given time,
// trying the current 30s step and one step on each side. Comparison is
// constant-time per candidate step.
func VerifyTOTP(secretBase32, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false
	}
	secret, err := base32NoPad.DecodeString(strings.ToUpper(strings.TrimRight(secretBase32, "=")))
	if err != nil || len(secret) == 0 {
		return false
	}

	base := now.Unix() / totpPeriod
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(secret, counter)), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

// TOTPCode computes the current code for a secret, i.e. what an
// authenticator app would display at the given time.
func TOTPCode(secretBase32 string, now time.Time) (string, error) {
	secret, err := base32NoPad.DecodeString(strings.ToUpper(strings.TrimRight(secretBase32, "=")))
	if err != nil {
		return "", err
	}
	return hotpCode(secret, now.Unix()/totpPeriod), nil
}

// hotpCode implements RFC 4226 dynamic truncation for a single counter.
func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// backupAlphabet deliberately omits characters users confuse when reading
// codes off paper (0/O, 1/I/L).
const backupAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes returns n random single-use recovery codes.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	buf := make([]byte, backupCodeLen)
	for i := 0; i < n; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, c := range buf {
			b.WriteByte(backupAlphabet[int(c)%len(backupAlphabet)])
		}
		codes = append(codes, b.String())
	}
	return codes, nil
}

// HashBackupCode returns the SHA-256 hex digest stored in place of the
// plain code, mirroring how refresh-style secrets are kept out of the
// database. Codes are normalized to upper case before hashing.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return hex.EncodeToString(sum[:])
}
