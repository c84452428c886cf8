package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/docketapp/docket/internal/docstore"
)

const collectionCredentials = "credentials"

// TokenExpiry is the lifetime of a cached device credential.
const TokenExpiry = 30 * 24 * time.Hour

// Claims are the JWT claims of an identity token. Subject carries the UID.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anon,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider implements Provider with HS256 tokens. Registered accounts
// (email plus bcrypt hash) live in the document store's credentials
// collection; anonymous identities exist only as signed tokens.
type JWTProvider struct {
	store   docstore.Store
	secret  []byte
	linkTTL time.Duration

	mu      sync.Mutex
	current *Identity
	changes chan Change
}

// NewJWTProvider creates a provider signing with the given shared secret.
func NewJWTProvider(store docstore.Store, secret string, linkTTL time.Duration) *JWTProvider {
	return &JWTProvider{
		store:   store,
		secret:  []byte(secret),
		linkTTL: linkTTL,
		changes: make(chan Change, 8),
	}
}

// SignInAnonymously establishes a fresh anonymous identity.
func (p *JWTProvider) SignInAnonymously(_ context.Context) (Identity, string, error) {
	ident := Identity{UID: uuid.New().String(), Anonymous: true}
	token, err := p.sign(ident, TokenExpiry)
	if err != nil {
		return Identity{}, "", err
	}
	p.setCurrent(&ident)
	return ident, token, nil
}

// Register creates an account and signs the caller in.
func (p *JWTProvider) Register(ctx context.Context, email, password string) (Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || password == "" {
		return Identity{}, "", ErrInvalidCredentials
	}

	existing, err := p.store.List(ctx, docstore.Query{
		Collection: collectionCredentials,
		Equals:     &docstore.Equals{Field: "email", Value: email},
	})
	if err != nil {
		return Identity{}, "", fmt.Errorf("check email: %w", err)
	}
	if len(existing) > 0 {
		return Identity{}, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.New().String()
	err = p.store.Set(ctx, collectionCredentials, uid, map[string]any{
		"email":         email,
		"password_hash": string(hash),
		"created_at":    docstore.ServerTimestamp,
	})
	if err != nil {
		return Identity{}, "", fmt.Errorf("store credentials: %w", err)
	}

	ident := Identity{UID: uid, Email: email}
	token, err := p.sign(ident, TokenExpiry)
	if err != nil {
		return Identity{}, "", err
	}
	p.setCurrent(&ident)
	return ident, token, nil
}

// SignIn authenticates an existing account.
func (p *JWTProvider) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	docs, err := p.store.List(ctx, docstore.Query{
		Collection: collectionCredentials,
		Equals:     &docstore.Equals{Field: "email", Value: email},
	})
	if err != nil {
		return Identity{}, "", fmt.Errorf("look up account: %w", err)
	}
	if len(docs) == 0 {
		return Identity{}, "", ErrInvalidCredentials
	}
	doc := docs[0]
	if bcrypt.CompareHashAndPassword([]byte(doc.String("password_hash")), []byte(password)) != nil {
		return Identity{}, "", ErrInvalidCredentials
	}

	ident := Identity{UID: doc.ID, Email: email}
	token, err := p.sign(ident, TokenExpiry)
	if err != nil {
		return Identity{}, "", err
	}
	p.setCurrent(&ident)
	return ident, token, nil
}

// SignInWithToken redeems a previously issued credential or device-link
// token. Expired or forged tokens yield ErrInvalidToken.
func (p *JWTProvider) SignInWithToken(_ context.Context, token string) (Identity, string, error) {
	claims, err := p.parse(token)
	if err != nil {
		return Identity{}, "", err
	}

	ident := Identity{UID: claims.Subject, Email: claims.Email, Anonymous: claims.Anonymous}
	// Re-issue a full-lifetime credential so short-lived link tokens do not
	// become the cached credential.
	fresh, err := p.sign(ident, TokenExpiry)
	if err != nil {
		return Identity{}, "", err
	}
	p.setCurrent(&ident)
	return ident, fresh, nil
}

// SignOut drops the current identity.
func (p *JWTProvider) SignOut() {
	p.setCurrent(nil)
}

// Current implements Provider.
func (p *JWTProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Changes implements Provider.
func (p *JWTProvider) Changes() <-chan Change {
	return p.changes
}

// IssueLinkToken signs a short-lived token for the current identity,
// suitable for linking another device.
func (p *JWTProvider) IssueLinkToken(_ context.Context) (string, error) {
	ident := p.Current()
	if ident == nil {
		return "", errors.New("identity: not signed in")
	}
	return p.sign(*ident, p.linkTTL)
}

func (p *JWTProvider) sign(ident Identity, ttl time.Duration) (string, error) {
	claims := Claims{
		Email:     ident.Email,
		Anonymous: ident.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.UID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *JWTProvider) setCurrent(ident *Identity) {
	p.mu.Lock()
	p.current = ident
	p.mu.Unlock()
	select {
	case p.changes <- Change{Identity: ident}:
	default:
	}
}
