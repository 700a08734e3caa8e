package application

import (
	"context"
	"net/http"
	"strings"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

const roleRejectedMessage = "You do not have permission to access this resource."

// defaultElevatedRoles são os papéis que liberam acesso aos paths protegidos.
var defaultElevatedRoles = []string{"admin", "moderator"}

// RoleGate autoriza requisições em escopo conforme a precedência:
//
//  1. sem identidade ou não autenticado -> nega;
//  2. superuser ou staff -> permite;
//  3. role igual a um papel elevado (case-insensitive) -> permite;
//  4. algum grupo da identidade é um papel elevado -> permite;
//  5. senão nega.
//
// Fora de escopo (PathRule) a requisição passa sem consulta à identidade.
type RoleGate struct {
	scope    domain.PathRule
	elevated []string
}

type RoleGateOption func(*RoleGate)

// WithElevatedRoles substitui o conjunto padrão {"admin", "moderator"}.
func WithElevatedRoles(roles ...string) RoleGateOption {
	return func(g *RoleGate) { g.elevated = roles }
}

func NewRoleGate(scope domain.PathRule, opts ...RoleGateOption) *RoleGate {
	g := &RoleGate{scope: scope, elevated: defaultElevatedRoles}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RoleGate) Name() string { return "role" }

func (g *RoleGate) Evaluate(_ context.Context, req domain.Request, _ time.Time) domain.Decision {
	if !g.scope.InScope(req.Path) {
		return domain.Forward()
	}
	if g.authorized(req.Identity) {
		return domain.Forward()
	}
	return domain.RejectWith(domain.StageRole, http.StatusForbidden, roleRejectedMessage)
}

func (g *RoleGate) authorized(id *domain.Identity) bool {
	if id == nil || !id.Authenticated {
		return false
	}
	if id.Superuser || id.Staff {
		return true
	}
	for _, role := range g.elevated {
		if strings.EqualFold(id.Role, role) {
			return true
		}
		if id.InGroup(role) {
			return true
		}
	}
	return false
}
