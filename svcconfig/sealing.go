package svcconfig

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen  = 16
	nonceLen = 12

	sealedPrefix = "sealed:"
)

var errNoPassphrase = errors.New("a sealed secret has been found, but no passphrase is configured")

// sealer encrypts the secrets of a configuration with a key derived from a
// passphrase. Without passphrase, the secrets are kept in clear.
type sealer struct {
	pass []byte
}

func newSealer(passphrase string) *sealer {
	return &sealer{pass: []byte(passphrase)}
}

// seal encrypts a secret. The service id is used as additional data, so a
// sealed secret can't be moved to the configuration of another service.
func (s *sealer) seal(serviceID, secret string) (string, error) {
	if len(s.pass) == 0 || secret == "" {
		return secret, nil
	}

	salt, err := readRand(saltLen)
	if err != nil {
		return "", err
	}
	aead, err := createAEADCipherFromPassWithKeyDerivation(s.pass, salt)
	if err != nil {
		return "", err
	}
	nonce, err := readRand(nonceLen)
	if err != nil {
		return "", err
	}

	sealedData := struct {
		Data  []byte
		Nonce []byte
		Salt  []byte
	}{
		Data:  aead.Seal(nil, nonce, []byte(secret), []byte(serviceID)),
		Nonce: nonce,
		Salt:  salt,
	}
	encoded, err := asn1.Marshal(sealedData)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(encoded), nil
}

// open decrypts a secret sealed by seal. A secret in clear is returned as is.
func (s *sealer) open(serviceID, value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if len(s.pass) == 0 {
		return "", errNoPassphrase
	}

	encoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	var sealedData struct {
		Data  []byte
		Nonce []byte
		Salt  []byte
	}
	if _, err = asn1.Unmarshal(encoded, &sealedData); err != nil {
		return "", err
	}

	aead, err := createAEADCipherFromPassWithKeyDerivation(s.pass, sealedData.Salt)
	if err != nil {
		return "", err
	}
	secret, err := aead.Open(nil, sealedData.Nonce, sealedData.Data, []byte(serviceID))
	if err != nil {
		return "", fmt.Errorf("Cannot open the secret: %w", err)
	}
	return string(secret), nil
}

func createAEADCipherFromPassWithKeyDerivation(pass, salt []byte) (cipher.AEAD, error) {
	if len(salt) != saltLen {
		return nil, fmt.Errorf("bad salt length %d != %d", len(salt), saltLen)
	}

	derivedKeyLen := 32
	N := 16384
	r := 8
	p := 1

	derivedKey, err := scrypt.Key(pass, salt, N, r, p, derivedKeyLen)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func readRand(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
