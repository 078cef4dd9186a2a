package store

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/sha3"
)

const maxNameLength = 18

var (
	onlyNumbers            = regexp.MustCompile(`^[0-9]+$`)
	alphaNumericUnderscore = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

var passwordArgon2id = &argon2id.Params{
	Memory:      128 * 1024,
	Iterations:  16,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   64,
}

// HashToken returns the SHA3-256 hash of a seat token. Seat tokens are random UUIDs,
// so they are not salted or stretched like passwords.
func HashToken(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CheckToken reports whether token matches a hash created by HashToken.
func CheckToken(token string, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}

func hashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, passwordArgon2id)
}

func checkPassword(password string, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	return err == nil && match
}

// ValidateName checks a player name.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("please enter a username")
	case !alphaNumericUnderscore.MatchString(name):
		return fmt.Errorf("please enter a username containing only letters, numbers and underscores")
	case onlyNumbers.MatchString(name):
		return fmt.Errorf("invalid username: must contain at least one non-numeric character")
	case len(name) > maxNameLength:
		return fmt.Errorf("invalid username: must be %d characters or less", maxNameLength)
	}
	return nil
}

func validateRegistration(name string, email string, password string) error {
	if err := ValidateName(name); err != nil {
		return err
	} else if strings.HasPrefix(strings.ToLower(name), "guest_") {
		return fmt.Errorf("please enter a valid username")
	} else if strings.TrimSpace(email) == "" {
		return fmt.Errorf("please enter an email address")
	} else if !strings.ContainsRune(email, '@') || !strings.ContainsRune(email, '.') {
		return fmt.Errorf("please enter a valid email address")
	} else if strings.TrimSpace(password) == "" {
		return fmt.Errorf("please enter a password")
	}
	return nil
}
