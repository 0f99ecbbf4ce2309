// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package tlsutil provides self-signed certificate generation and loading
// for the API endpoint. Operator-provided certificates take precedence;
// the generated ones exist so TLS can be enabled without external tooling.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"

	// Generated certificates are replaced this close to expiry so a
	// long-running server never serves a stale one after restart.
	renewWindow = 24 * time.Hour
)

// ServerCert holds a server certificate and its private key.
type ServerCert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// Generate creates a self-signed server certificate valid for one year.
// localhost and 127.0.0.1 are always included alongside the given hosts.
func Generate(hosts []string) (*ServerCert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").
			With("operation", "generate server key").
			Wrap(err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").
			With("operation", "generate serial").
			Wrap(err)
	}

	dnsNames := []string{"localhost"}
	ips := []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
			continue
		}
		if h != "" && h != "localhost" {
			dnsNames = append(dnsNames, h)
		}
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"SessionForge"},
			CommonName:   "sessionforge",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").
			With("operation", "create certificate").
			Wrap(err)
	}

	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").
			With("operation", "parse certificate").
			Wrap(err)
	}

	return &ServerCert{Certificate: cert, PrivateKey: key}, nil
}

// Save writes the certificate and key as PEM files under dir.
func Save(dir string, cert *ServerCert) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Code("TLS_SAVE_FAILED").
			With("operation", "create certs directory").
			With("dir", dir).
			Wrap(err)
	}
	if err := savePEM(filepath.Join(dir, certFileName), "CERTIFICATE", cert.Certificate.Raw); err != nil {
		return err
	}
	keyBytes, err := x509.MarshalECPrivateKey(cert.PrivateKey)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").
			With("operation", "marshal key").
			Wrap(err)
	}
	return savePEM(filepath.Join(dir, keyFileName), "EC PRIVATE KEY", keyBytes)
}

// Load reads a previously saved certificate and key from dir.
func Load(dir string) (*ServerCert, error) {
	certPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, certFileName)))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("operation", "read certificate").
			With("dir", dir).
			Wrap(err)
	}
	keyPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, keyFileName)))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("operation", "read key").
			With("dir", dir).
			Wrap(err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Errorf("certificate PEM is malformed")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("operation", "parse certificate").
			Wrap(err)
	}

	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Errorf("key PEM is malformed")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("operation", "parse key").
			Wrap(err)
	}

	return &ServerCert{Certificate: cert, PrivateKey: key}, nil
}

// Ensure returns a usable certificate from dir, generating and saving a
// fresh self-signed one when none exists or the stored one is within the
// renewal window.
func Ensure(dir string, hosts []string) (tls.Certificate, error) {
	if cert, err := Load(dir); err == nil && usable(cert.Certificate) {
		return toTLS(cert)
	}

	cert, err := Generate(hosts)
	if err != nil {
		return tls.Certificate{}, err
	}
	if err := Save(dir, cert); err != nil {
		return tls.Certificate{}, err
	}
	return toTLS(cert)
}

func usable(cert *x509.Certificate) bool {
	now := time.Now()
	return now.After(cert.NotBefore) && now.Add(renewWindow).Before(cert.NotAfter)
}

func toTLS(cert *ServerCert) (tls.Certificate, error) {
	keyBytes, err := x509.MarshalECPrivateKey(cert.PrivateKey)
	if err != nil {
		return tls.Certificate{}, oops.Code("TLS_LOAD_FAILED").
			With("operation", "marshal key").
			Wrap(err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate.Raw})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, oops.Code("TLS_LOAD_FAILED").
			With("operation", "build key pair").
			Wrap(err)
	}
	return pair, nil
}

func savePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").
			With("operation", "create file").
			With("path", path).
			Wrap(err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close() //nolint:errcheck // encode error takes precedence
		return oops.Code("TLS_SAVE_FAILED").
			With("operation", "encode pem").
			With("path", path).
			Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").
			With("operation", "close file").
			With("path", path).
			Wrap(err)
	}
	return nil
}
