package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Verifier maps an opaque bearer token to a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

// tokenVerifier is the subset of the Firebase auth client we call.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier reads the service-account file once and builds the
// auth client.
func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := tok.Claims["email"].(string)
	return model.Identity{UID: tok.UID, Email: email}, nil
}
