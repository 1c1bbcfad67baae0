package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the lowercase hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable document id from a file name and its content hash.
func DocumentID(name, hash string) string {
	return name + "-" + hash
}

// Hasher exposes Hash and DocumentID behind a value for injection.
type Hasher struct{}

func (Hasher) Hash(data []byte) string { return Hash(data) }

func (Hasher) DocumentID(name, hash string) string { return DocumentID(name, hash) }
