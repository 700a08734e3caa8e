// Package application contém os casos de uso do gatekeeper: o pipeline
// ordenado de gates e os próprios gates (horário, rate limit, papel).
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Pipeline.Handle(ctx, req) retorna uma Decision (forward ou reject
// com status + mensagem).
package application
