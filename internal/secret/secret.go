// Package secret decrypts account credentials served by the aggregator API.
// Secrets are stored AES-256-CBC encrypted with a key derived from the shared
// MATE_SALT: key = SHA-256(salt), IV = MD5(salt), PKCS#7 padding, base64
// transport encoding.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
)

// Decrypt decodes and decrypts a base64 ciphertext with the given salt.
func Decrypt(ciphertext, salt string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "decode secret")
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", errors.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}

	block, err := newCipher(salt)
	if err != nil {
		return "", err
	}

	iv := md5.Sum([]byte(salt))
	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plain, raw)

	plain, err = stripPadding(plain)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Encrypt is the inverse of Decrypt. The collector never stores secrets; this
// exists for the API side and for round-trip tests.
func Encrypt(plaintext, salt string) (string, error) {
	block, err := newCipher(salt)
	if err != nil {
		return "", err
	}

	padded := applyPadding([]byte(plaintext))
	iv := md5.Sum([]byte(salt))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func newCipher(salt string) (cipher.Block, error) {
	key := sha256.Sum256([]byte(salt))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "init cipher")
	}
	return block, nil
}

func applyPadding(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func stripPadding(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("malformed secret padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("malformed secret padding")
		}
	}
	return data[:len(data)-n], nil
}
