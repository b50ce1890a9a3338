// Package services contains the business logic for discount code shares.
package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// charset is the token alphabet: 62 case-sensitive alphanumerics.
// An 8-character token gives 62^8 (about 2.18e14) possible values.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultTokenLength is the share token length used when none is configured.
const DefaultTokenLength = 8

var charsetSize = big.NewInt(int64(len(charset)))

// GenerateToken returns a random token of exactly length characters drawn
// uniformly from charset using crypto/rand. It panics when length < 1 or
// when the system entropy source fails; neither is recoverable by a caller.
func GenerateToken(length int) string {
	if length < 1 {
		panic(fmt.Sprintf("services: invalid token length %d", length))
	}
	token := make([]byte, length)
	for i := range token {
		n, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			panic(fmt.Sprintf("services: entropy source failed: %v", err))
		}
		token[i] = charset[n.Int64()]
	}
	return string(token)
}
