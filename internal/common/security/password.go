package security

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"
)

const similarityThreshold = 0.7

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TooSimilar reports whether password resembles any of the given personal
// attributes. The local part of an email is compared on its own.
func TooSimilar(password string, attributes ...string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if i := strings.Index(attr, "@"); i > 0 {
			attr = attr[:i]
		}
		if attr == "" {
			continue
		}
		if pw == attr {
			return true
		}
		m := difflib.NewMatcher(strings.Split(pw, ""), strings.Split(attr, ""))
		if m.QuickRatio() >= similarityThreshold && m.Ratio() >= similarityThreshold {
			return true
		}
	}
	return false
}
