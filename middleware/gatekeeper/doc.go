// Package gatekeeper fornece o adapter HTTP (net/http) do pipeline de
// gates que inspeciona toda requisição antes da aplicação.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: pipeline + gates (horário, rate limit, papel) sem net/http
//   - infra: implementações concretas (janela deslizante, stores, logger)
//   - gatekeeper (este pacote): middleware HTTP + extração de chave/identidade
//     + tradução de Decision para status/corpo
//
// Fluxo:
//
//  1. Extrai a chave do cliente (header/XFF/IP) e resolve a identidade
//  2. Chama Pipeline.Handle: log de acesso, gate de horário, rate limit,
//     gate de papel, nessa ordem, com curto-circuito
//  3. Se rejeitado, responde o status e o corpo literais do gate (403/429)
//  4. Se permitido, chama o próximo handler exatamente uma vez (ex: proxy)
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como RATE_LIMIT, RATE_WINDOW, ALLOWED_START_HOUR e
// PROTECTED_PREFIXES.
package gatekeeper
