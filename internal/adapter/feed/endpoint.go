package feed

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"marketsync/internal/domain/port"
)

const (
	DefaultSymbolsParam = "symbols"
	DefaultTokenParam   = "token"
	DefaultNonceParam   = "_"
)

// Endpoint derives the subscription target for one connection attempt.
// A new nonce is generated and the token provider is asked again on every
// call, so a reconnect never reuses a stale URL.
type Endpoint struct {
	BaseURL      string
	SymbolsParam string
	TokenParam   string
	NonceParam   string
	Tokens       port.TokenProvider
}

func NewEndpoint(baseURL string, tokens port.TokenProvider) *Endpoint {
	return &Endpoint{BaseURL: baseURL, Tokens: tokens}
}

func (e *Endpoint) Target(ctx context.Context, symbols []string) (port.Target, error) {
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return port.Target{}, fmt.Errorf("parse feed url: %w", err)
	}

	q := u.Query()
	q.Set(orDefault(e.SymbolsParam, DefaultSymbolsParam), strings.Join(symbols, ","))
	if e.Tokens != nil {
		token, err := e.Tokens.Token(ctx)
		if err != nil {
			return port.Target{}, fmt.Errorf("fetch feed token: %w", err)
		}
		if token != "" {
			q.Set(orDefault(e.TokenParam, DefaultTokenParam), token)
		}
	}
	q.Set(orDefault(e.NonceParam, DefaultNonceParam), uuid.NewString())
	u.RawQuery = q.Encode()

	return port.Target{URL: u.String(), Symbols: append([]string(nil), symbols...)}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// StaticToken is a fixed credential.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// FileToken re-reads a credential file on every attempt so that an external
// process can rotate it.
type FileToken struct {
	Path string
}

func (t FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
