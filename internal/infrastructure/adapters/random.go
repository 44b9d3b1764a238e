package adapters

import (
	"crypto/rand"

	"virtnic-agent/internal/domain/interfaces"
)

// CryptoRandomSource는 crypto/rand를 사용하는 RandomSource 구현체입니다
type CryptoRandomSource struct{}

// NewCryptoRandomSource는 새로운 CryptoRandomSource를 생성합니다
func NewCryptoRandomSource() interfaces.RandomSource {
	return &CryptoRandomSource{}
}

// Bytes는 n개의 난수 바이트를 반환합니다
func (r *CryptoRandomSource) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
