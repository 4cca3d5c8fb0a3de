package contentapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	Scope = "https://www.googleapis.com/auth/content"

	tokenRequestTimeout = 10 * time.Second
)

// NewTokenSource builds a cached token source from service account JSON.
// Token exchanges use their own bounded HTTP client.
func NewTokenSource(ctx context.Context, serviceAccountJSON []byte) (oauth2.TokenSource, error) {
	if len(serviceAccountJSON) == 0 {
		return nil, errors.New("service account credentials are empty")
	}

	cfg, err := google.JWTConfigFromJSON(serviceAccountJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: tokenRequestTimeout})
	return oauth2.ReuseTokenSource(nil, cfg.TokenSource(ctx)), nil
}

type tokenResult struct {
	token *oauth2.Token
	err   error
}

// FetchToken asks tokens for a token but stops waiting once ctx is done.
// TokenSource has no context of its own, so a refresh that never returns
// is left behind in its goroutine.
func FetchToken(ctx context.Context, tokens oauth2.TokenSource) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resultCh := make(chan tokenResult, 1)
	go func() {
		token, err := tokens.Token()
		resultCh <- tokenResult{token: token, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.token, res.err
	}
}

type failingTokenSource struct {
	err error
}

// FailingTokenSource never yields a token. It lets the service start without
// credentials and answer status requests with an auth error.
func FailingTokenSource(err error) oauth2.TokenSource {
	return failingTokenSource{err: err}
}

func (s failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, s.err
}
