package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

var ErrInvalidToken = errors.New("invalid or expired access token")

// Identity is the authenticated caller as seen by the engine.
type Identity struct {
	UserID uint
	Name   string
	Roles  []string
}

// IsAdmin reports whether the caller may use the administrative controls.
func (i *Identity) IsAdmin() bool {
	for _, r := range i.Roles {
		if r == "admin" || r == "teacher" {
			return true
		}
	}
	return false
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// CasdoorVerifier validates tokens against a Casdoor deployment.
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

func NewCasdoorVerifier(cfg CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseUint(claims.User.Id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric subject %q", ErrInvalidToken, claims.User.Id)
	}

	roles := make([]string, 0, len(claims.User.Roles))
	for _, r := range claims.User.Roles {
		roles = append(roles, r.Name)
	}

	return &Identity{
		UserID: uint(userID),
		Name:   claims.User.Name,
		Roles:  roles,
	}, nil
}

// StaticVerifier maps fixed tokens to identities. Used in tests and local
// development where no Casdoor instance is running.
type StaticVerifier struct {
	Identities map[string]*Identity
}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{Identities: make(map[string]*Identity)}
}

func (v *StaticVerifier) Add(token string, id *Identity) {
	v.Identities[token] = id
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	id, ok := v.Identities[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return id, nil
}
