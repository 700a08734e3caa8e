package domain

// Stage nomeia o estágio do pipeline que produziu uma decisão.
type Stage string

const (
	StageTime Stage = "time"
	StageRate Stage = "rate"
	StageRole Stage = "role"
)

// Decision é o resultado terminal de um gate ou do pipeline inteiro.
//
// Exatamente uma de duas formas: encaminhar (Allowed=true, demais campos
// zerados) ou rejeitar (Allowed=false, Status/Message/Stage preenchidos).
// Não existe estado parcial.
type Decision struct {
	Allowed bool
	Status  int
	Message string
	Stage   Stage
}

// Forward cria a decisão de encaminhamento.
func Forward() Decision {
	return Decision{Allowed: true}
}

// RejectWith cria uma rejeição terminal com o status e corpo que a camada
// HTTP deve devolver literalmente.
func RejectWith(stage Stage, status int, message string) Decision {
	return Decision{Allowed: false, Status: status, Message: message, Stage: stage}
}
