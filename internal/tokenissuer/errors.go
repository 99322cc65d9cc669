// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tokenissuer

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go.voipnowmcp.dev/internal/constable"
)

const (
	// ErrAuthRejected means the platform refused the application identity.  Retrying without a
	// configuration change will not help.
	ErrAuthRejected = constable.Error("platform rejected the application credentials")
	// ErrInvalidClient is additionally matched when the platform reported invalid_client,
	// i.e. the appId or appSecret is wrong.
	ErrInvalidClient = constable.Error("invalid_client: check appId and appSecret")
	// ErrTransport covers timeouts, connection failures and server side errors.
	ErrTransport = constable.Error("could not reach the platform token endpoint")
	// ErrInvalidResponse means the platform answered with something that is not a usable credential.
	ErrInvalidResponse = constable.Error("platform token endpoint returned an unusable response")
	// ErrCertificate is matched by every *CertificateError.
	ErrCertificate = constable.Error("platform TLS certificate could not be verified")
)

// CertificateError describes the certificate that failed verification, when it is known.
type CertificateError struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
	Err       error
}

func (e *CertificateError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCertificate.Error())
	if e.Subject != "" || e.Issuer != "" {
		_, _ = fmt.Fprintf(&b, " (subject %q, issuer %q, valid from %s until %s)",
			e.Subject, e.Issuer, e.NotBefore.UTC().Format(time.RFC3339), e.NotAfter.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(&b, ": %v; verification may only be disabled with \"insecure\": true on non-production platforms", e.Err)
	return b.String()
}

func (e *CertificateError) Unwrap() error {
	return e.Err
}

func (e *CertificateError) Is(target error) bool {
	return target == ErrCertificate
}

// asCertificateError returns a *CertificateError when err was caused by certificate verification.
func asCertificateError(err error) (*CertificateError, bool) {
	var cert *x509.Certificate
	var found bool

	var unknownAuthority x509.UnknownAuthorityError
	var invalid x509.CertificateInvalidError
	var hostname x509.HostnameError
	var verification *tls.CertificateVerificationError

	switch {
	case errors.As(err, &unknownAuthority):
		cert, found = unknownAuthority.Cert, true
	case errors.As(err, &invalid):
		cert, found = invalid.Cert, true
	case errors.As(err, &hostname):
		cert, found = hostname.Certificate, true
	case errors.As(err, &verification):
		found = true
		if len(verification.UnverifiedCertificates) > 0 {
			cert = verification.UnverifiedCertificates[0]
		}
	}
	if !found {
		return nil, false
	}

	certErr := &CertificateError{Err: err}
	if cert != nil {
		certErr.Subject = cert.Subject.String()
		certErr.Issuer = cert.Issuer.String()
		certErr.NotBefore = cert.NotBefore
		certErr.NotAfter = cert.NotAfter
	}
	return certErr, true
}
