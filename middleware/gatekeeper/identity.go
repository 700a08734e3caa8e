package gatekeeper

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// identityClaims são as claims que o transporte coloca no token de acesso.
//
// O gatekeeper não autentica: só decodifica a identidade que o emissor do
// token já resolveu. Token ausente ou inválido vira anônimo, nunca erro.
type identityClaims struct {
	Username  string   `json:"username"`
	Superuser bool     `json:"is_superuser"`
	Staff     bool     `json:"is_staff"`
	Role      string   `json:"role,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// BearerIdentity resolve a identidade a partir do Authorization: Bearer
// com assinatura HS256. Qualquer problema (sem header, assinatura ruim,
// token expirado) resulta em identidade nil (anônimo).
func BearerIdentity(secret []byte) IdentityFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	return func(r *http.Request) *domain.Identity {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			return nil
		}

		var claims identityClaims
		parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			return nil
		}

		username := claims.Username
		if username == "" {
			username = claims.Subject
		}

		return &domain.Identity{
			Username:      username,
			Authenticated: true,
			Superuser:     claims.Superuser,
			Staff:         claims.Staff,
			Role:          claims.Role,
			Groups:        claims.Groups,
		}
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
