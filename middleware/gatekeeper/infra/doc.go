// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - SlidingWindowCounter: contador por chave com janela deslizante e locks por chave
//   - MemoryWindowStore / RedisWindowStore: backing do estado da janela
//   - AccessLogger: log de acesso assíncrono, best-effort
//   - Throttle: token bucket global usando golang.org/x/time/rate
package infra
