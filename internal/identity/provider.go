package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"absensi/internal/auth"
)

// ErrInvalidToken signals a credential that failed verification, including
// tokens of deleted identities.
var ErrInvalidToken = errors.New("invalid token")

// Provider verifies bearer credentials and deletes identities.
type Provider interface {
	// VerifyToken returns the subject uid of a valid bearer token.
	VerifyToken(ctx context.Context, token string) (string, error)
	// DeleteUser removes an identity; its tokens stop verifying.
	DeleteUser(ctx context.Context, uid string) error
}

// JWTProvider implements Provider with HS256 tokens and a revocation table
// in Postgres. Deleting an identity records its uid; verification rejects
// revoked subjects even when the signature is still valid.
type JWTProvider struct {
	db         *sql.DB
	signingKey string
	issuer     string
}

// NewJWTProvider creates a provider bound to the given signing key and issuer.
func NewJWTProvider(db *sql.DB, signingKey, issuer string) *JWTProvider {
	return &JWTProvider{db: db, signingKey: signingKey, issuer: issuer}
}

// VerifyToken parses and validates the token, then checks the subject
// against the revocation table.
func (p *JWTProvider) VerifyToken(ctx context.Context, token string) (string, error) {
	claims, err := auth.Parse(token, p.signingKey, p.issuer)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var revoked bool
	row := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM revoked_subjects WHERE uid = $1)
	`, claims.Subject)
	if err := row.Scan(&revoked); err != nil {
		return "", fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return "", fmt.Errorf("%w: subject revoked", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// DeleteUser revokes the identity. Deleting an already-deleted identity is
// not an error.
func (p *JWTProvider) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.New("uid required")
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO revoked_subjects (uid)
		VALUES ($1)
		ON CONFLICT (uid) DO NOTHING
	`, uid)
	return err
}
