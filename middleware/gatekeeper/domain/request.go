package domain

// Camada de domínio do gatekeeper.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "strings"

// Key identifica o cliente para fins de rate limiting (ex: IP, API key).
type Key string

// Identity é a identidade já resolvida pela camada de transporte.
//
// O gatekeeper apenas lê esses campos; autenticação/verificação de credenciais
// fica fora do core. Um ponteiro nil equivale a requisição anônima.
type Identity struct {
	Username      string
	Authenticated bool
	Superuser     bool
	Staff         bool
	Role          string
	Groups        []string
}

// Display retorna a representação do usuário para o log de acesso:
// o nome quando autenticado, ou o literal "Anonymous".
func (id *Identity) Display() string {
	if id == nil || !id.Authenticated {
		return "Anonymous"
	}
	return id.Username
}

// InGroup informa se a identidade pertence ao grupo (case-insensitive).
func (id *Identity) InGroup(name string) bool {
	if id == nil {
		return false
	}
	for _, g := range id.Groups {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

// Request é a visão abstrata de uma requisição inbound.
//
// A camada de transporte (HTTP) constrói este valor; o pipeline só decide
// encaminhar ou rejeitar, nunca o modifica.
type Request struct {
	Method    string
	Path      string
	ClientKey Key
	Identity  *Identity
}
