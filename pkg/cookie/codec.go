package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"
)

// sign encodes value as base64(value).base64(hmac-sha256(value)).
func sign(secret, value []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(value)
	return base64.RawURLEncoding.EncodeToString(value) +
		"." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify decodes a signed value and checks its HMAC.
func verify(secret []byte, raw string) ([]byte, error) {
	encoded, sigPart, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, ErrBadSig
	}

	value, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, ErrBadSig
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(value)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrBadSig
	}
	return value, nil
}

// seal encrypts value with AES-GCM under a key derived from secret and
// returns it base64-encoded, nonce prepended.
func seal(secret, value []byte) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(aead.Seal(nonce, nonce, value, nil)), nil
}

// open reverses seal.
func open(secret []byte, raw string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrDecrypt
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(data) < aead.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := aead.Open(nil, data[:aead.NonceSize()], data[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newAEAD(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
