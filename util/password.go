package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argonPrefix  = "argon2id$"
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var (
	jwtSecretValue = getEnv("JWTSECRET", "")
	jwtSecretByte  = []byte(jwtSecretValue)
	jwtMutex       sync.RWMutex
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// HashPassword is the legacy HMAC-SHA256 digest keyed with the JWT secret.
// It is kept only to verify accounts created before Argon2 hashing.
func HashPassword(password string) (hashedPassword string) {
	h := hmac.New(sha256.New, GetJWTSecretByte())
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateSalt returns a random base64 salt for HashPasswordArgon2.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random salt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// HashPasswordArgon2 derives an Argon2id key and encodes it with its cost
// parameters as "argon2id$v=19$m=..,t=..,p=..$<key>".
func HashPasswordArgon2(password, salt string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	if salt == "" {
		return "", fmt.Errorf("empty salt")
	}
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s", argonPrefix, argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// IsArgon2Hash reports whether the stored hash already uses Argon2id.
func IsArgon2Hash(stored string) bool {
	return strings.HasPrefix(stored, argonPrefix)
}

// VerifyPassword checks plain against a stored hash. Argon2id, bcrypt and the
// legacy HMAC digest are all accepted. Comparisons are constant-time.
func VerifyPassword(plain, stored, salt string) (bool, error) {
	switch {
	case IsArgon2Hash(stored):
		return verifyArgon2(plain, stored, salt)
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return err == nil, err
	default:
		return hmac.Equal([]byte(HashPassword(plain)), []byte(stored)), nil
	}
}

func verifyArgon2(plain, stored, salt string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(stored, argonPrefix), "$")
	if len(parts) != 3 {
		return false, fmt.Errorf("malformed argon2 hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %q", parts[0])
	}
	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("malformed argon2 parameters: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("malformed argon2 key: %w", err)
	}
	got := argon2.IDKey([]byte(plain), []byte(salt), iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// SetJWTSecret updates the secret used for token signing and legacy
// password digests. Tests relying on a fixed secret must not run in parallel.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}
