package cli

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"
)

// ephemeralSelfSignedCert generates a short-lived self-signed certificate
// used only to satisfy the transport's TLS layer; it carries no identity
// of its own and does not authenticate the peer. The CLI also gives the
// session handshake no peer key, so the handshake's Ed25519 signatures are
// not verified on CLI transfers either.
func ephemeralSelfSignedCert() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"openshare"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
	}, nil
}

// clientTLSConfig skips certificate verification: the transport's TLS
// layer only provides transport confidentiality here, not peer identity.
func clientTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}
