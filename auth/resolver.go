// Package auth turns bearer tokens into shardvault owner identities.
// Token verification rides on Okta OAuth2 JWTs; the verified subject is mapped
// to a numeric owner id through a SubjectRegistry, with Redis-cacheable lookups.
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	jwtverifier "github.com/okta/okta-jwt-verifier-golang"

	"github.com/sharedcode/shardvault"
)

// SubjectRegistry maps verified token subjects to owner ids. The cassandra
// package provides the persistent implementation.
type SubjectRegistry interface {
	GetOrCreateOwnerID(ctx context.Context, username string) (int64, error)
}

const ownerCacheDuration = 15 * time.Minute

type resolver struct {
	registry SubjectRegistry
	cache    shardvault.Cache
}

// NewResolver instantiates a TokenResolver. cache is optional; when set,
// subject to owner id resolutions are cached.
func NewResolver(registry SubjectRegistry, cache shardvault.Cache) (shardvault.TokenResolver, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry parameter can't be nil")
	}
	return &resolver{
		registry: registry,
		cache:    cache,
	}, nil
}

// Resolve verifies the bearer token and returns the owner id of its subject.
func (r *resolver) Resolve(ctx context.Context, bearerToken string) (int64, error) {
	if bearerToken == "" {
		return 0, shardvault.Error{Code: shardvault.AuthFailure, Err: fmt.Errorf("missing bearer token")}
	}
	subject, err := verifySubject(bearerToken)
	if err != nil {
		return 0, shardvault.Error{Code: shardvault.AuthFailure, Err: err}
	}
	return r.ownerOf(ctx, subject)
}

func (r *resolver) ownerOf(ctx context.Context, subject string) (int64, error) {
	key := "sv/owner/" + subject
	if r.cache != nil {
		var cached int64
		if found, err := r.cache.GetStruct(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}
	id, err := r.registry.GetOrCreateOwnerID(ctx, subject)
	if err != nil {
		return 0, shardvault.Error{Code: shardvault.Internal, Err: err}
	}
	if r.cache != nil {
		// Tolerate cache failure, the registry already answered.
		_ = r.cache.SetStruct(ctx, key, id, ownerCacheDuration)
	}
	return id, nil
}

// verifySubject validates the JWT against the configured Okta issuer and
// extracts its subject.
func verifySubject(token string) (string, error) {
	// Allow easy debugging on dev: the token doubles as the subject.
	if os.Getenv("SHARDVAULT_ENV") == "DEV" {
		return token, nil
	}
	// Allow easy QA, bypass Okta based OAuth2 token verification w/ simple token equality check.
	if os.Getenv("SHARDVAULT_ENV") == "QA" {
		if qaToken := os.Getenv("SHARDVAULT_QA_TOKEN"); qaToken != "" && token == qaToken {
			return "qa", nil
		}
	}

	toValidate := map[string]string{
		"aud": "api://default",
		"cid": os.Getenv("OKTA_CLIENT_ID"),
	}
	verifierSetup := jwtverifier.JwtVerifier{
		Issuer:           "https://" + os.Getenv("OKTA_DOMAIN") + "/oauth2/default",
		ClaimsToValidate: toValidate,
	}
	verifier := verifierSetup.New()
	jwt, err := verifier.VerifyAccessToken(token)
	if err != nil {
		return "", err
	}
	subject, ok := jwt.Claims["sub"].(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("token has no subject claim")
	}
	return subject, nil
}
