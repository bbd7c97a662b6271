package hash

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with bcrypt. Each call generates
// a fresh random salt, so hashing the same password twice yields different
// digests; only CheckPassword can relate a digest back to its plaintext.
func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// CheckPassword reports whether password matches the bcrypt digest.
// Empty inputs are simply a mismatch, never an error.
func CheckPassword(digest, password string) bool {
	if digest == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
