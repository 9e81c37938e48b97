package auth

import (
	"context"
	"fmt"
	"strings"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Verifier is the identity provider boundary
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// FirebaseVerifier checks Firebase ID tokens
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, cfg models.AuthConfig) (*FirebaseVerifier, error) {
	if cfg.FirebaseProjectId == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required unless AUTH_DISABLED is set")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectId}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
	}

	zap.L().Info("Firebase identity verifier initialized", zap.String("project_id", cfg.FirebaseProjectId))
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: no token provided", store.ErrUnauthorized)
	}

	verified, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: invalid token: %v", store.ErrUnauthorized, err)
	}

	email, _ := verified.Claims["email"].(string)
	name, _ := verified.Claims["name"].(string)
	if email == "" {
		return models.Identity{}, fmt.Errorf("%w: token has no email claim", store.ErrUnauthorized)
	}
	return models.Identity{ExternalId: verified.UID, Email: email, Name: name}, nil
}

// DevVerifier accepts any non-empty token as the caller's external id.
// Only used when AUTH_DISABLED is set.
type DevVerifier struct{}

func (DevVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: no token provided", store.ErrUnauthorized)
	}
	return models.Identity{ExternalId: token, Email: token + "@dev.local", Name: token}, nil
}

// NewVerifier picks the Firebase verifier, or the dev verifier when auth is disabled
func NewVerifier(ctx context.Context, cfg models.AuthConfig) (Verifier, error) {
	if cfg.Disabled {
		zap.L().Warn("Authentication disabled, bearer tokens are trusted as user ids")
		return DevVerifier{}, nil
	}
	return NewFirebaseVerifier(ctx, cfg)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
