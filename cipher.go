package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// AESGCM is the default Cipher. Keys are expected to be 16, 24, or 32 bytes;
// the Envelope always hands it a 32 byte derived key.
type AESGCM struct{}

var _ Cipher = (*AESGCM)(nil)

func NewAESGCMCipher() *AESGCM {
	return &AESGCM{}
}

// NonceSize returns the GCM standard nonce size.
func (s *AESGCM) NonceSize() int {
	return 12
}

func (s *AESGCM) Encrypt(key, raw []byte) (enc, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating new cipher block: %v", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("error wrapping cipher block in GCM: %v", err)
	}

	nonce = make([]byte, gcm.NonceSize())
	if n, err := rand.Read(nonce); err != nil || n != gcm.NonceSize() {
		return nil, nil, fmt.Errorf("failed to generate nonce: %v", err)
	}

	enc = gcm.Seal(nil, nonce, raw, nil)

	return enc, nonce, nil
}

func (s *AESGCM) Decrypt(key, enc, nonce []byte) (raw []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("error creating new cipher block: %v", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error wrapping cipher block in GCM: %v", err)
	}

	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce size does not match")
	}

	raw, err = gcm.Open(nil, nonce, enc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cipher block: %v", err)
	}

	return raw, nil
}
