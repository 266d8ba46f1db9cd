package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	accessKeyMin = 100000
	accessKeyMax = 999999
)

// RandomKeyGenerator draws six-digit access keys uniformly from
// [100000, 999999] using the OS entropy source.
type RandomKeyGenerator struct{}

// NewRandomKeyGenerator creates a key generator backed by crypto/rand
func NewRandomKeyGenerator() *RandomKeyGenerator {
	return &RandomKeyGenerator{}
}

// Generate returns a fresh access key
func (g *RandomKeyGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accessKeyMax-accessKeyMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate access key: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+accessKeyMin), nil
}
