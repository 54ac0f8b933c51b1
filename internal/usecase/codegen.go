package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/mogumap/coupon-engine/internal/domain"
)

const (
	codeAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength          = 6
	defaultCodeAttempts = 10
)

// CodeOracle answers whether a candidate code is already taken.
type CodeOracle interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CodeGenerator mints short redemption codes. Codes are bearer credentials,
// so candidates come from crypto/rand.
type CodeGenerator struct {
	alphabet    string
	length      int
	maxAttempts int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		alphabet:    codeAlphabet,
		length:      codeLength,
		maxAttempts: defaultCodeAttempts,
	}
}

// Generate draws candidates until the oracle reports one free, giving up
// after maxAttempts with ErrCodeSpaceExhausted rather than looping forever.
// The caller still owns the atomic reservation: a free answer here can be
// stale by insert time.
func (g *CodeGenerator) Generate(ctx context.Context, oracle CodeOracle) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("draw code: %w", err)
		}
		taken, err := oracle.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

func (g *CodeGenerator) draw() (string, error) {
	var builder strings.Builder
	builder.Grow(g.length)
	max := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(g.alphabet[n.Int64()])
	}
	return builder.String(), nil
}
