// Package gateway speaks the payment gateway's wire format: a JSON payload
// content-encrypted into a compact JWE (dir key agreement, AES-256-GCM),
// then signed into a compact JWS (HMAC-SHA-256). Responses, error responses
// included, arrive in the same envelope and are verified before they are
// decrypted, never the other way around.
package gateway

import (
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

var (
	ErrBadSignature = errors.New("gateway envelope signature verification failed")
	ErrDecrypt      = errors.New("gateway envelope decryption failed")
)

// Encrypt wraps payload into a compact JWE. The protected header carries the
// key id and client id the gateway uses to pick our keys.
func Encrypt(payload []byte, encKey []byte, keyID, clientID string) (string, error) {
	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: encKey},
		&jose.EncrypterOptions{ExtraHeaders: map[jose.HeaderKey]interface{}{
			"kid":      keyID,
			"clientid": clientID,
		}},
	)
	if err != nil {
		return "", fmt.Errorf("build encrypter: %w", err)
	}
	obj, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypt payload: %w", err)
	}
	return obj.CompactSerialize()
}

// Sign wraps the compact JWE into a compact JWS. The signature covers the
// whole JWE string.
func Sign(jwe string, signKey []byte, keyID, clientID string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: signKey},
		&jose.SignerOptions{ExtraHeaders: map[jose.HeaderKey]interface{}{
			"kid":      keyID,
			"clientid": clientID,
		}},
	)
	if err != nil {
		return "", fmt.Errorf("build signer: %w", err)
	}
	obj, err := signer.Sign([]byte(jwe))
	if err != nil {
		return "", fmt.Errorf("sign envelope: %w", err)
	}
	return obj.CompactSerialize()
}

// VerifyAndDecrypt opens an inbound envelope. Verification happens strictly
// before decryption; unverified input is never decrypted.
func VerifyAndDecrypt(token string, signKey, encKey []byte) ([]byte, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	inner, err := jws.Verify(signKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	jwe, err := jose.ParseEncrypted(string(inner),
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	payload, err := jwe.Decrypt(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return payload, nil
}

// Keys bundles the merchant key material and identity used on both layers.
type Keys struct {
	SignKey  []byte
	EncKey   []byte
	KeyID    string
	ClientID string
}

func (k Keys) Seal(payload []byte) (string, error) {
	jwe, err := Encrypt(payload, k.EncKey, k.KeyID, k.ClientID)
	if err != nil {
		return "", err
	}
	return Sign(jwe, k.SignKey, k.KeyID, k.ClientID)
}

func (k Keys) Open(token string) ([]byte, error) {
	return VerifyAndDecrypt(token, k.SignKey, k.EncKey)
}
