package service

import "golang.org/x/crypto/bcrypt"

// bcryptCost is the adaptive hashing work factor (recommended minimum)
const bcryptCost = 12

// HashPassword produces a one-way adaptive hash of the plaintext
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
