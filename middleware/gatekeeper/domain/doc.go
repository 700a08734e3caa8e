// Package domain define contratos e tipos de domínio do gatekeeper de requisições.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras dos
// gates (horário, rate limit, papel) de detalhes de infraestrutura.
package domain
