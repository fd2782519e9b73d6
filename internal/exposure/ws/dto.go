package ws

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Modality vazia ou "*" assina todas as modalidades
type ClientMsg struct {
	Type     string `json:"type"`
	Modality string `json:"modality"`
}

// AlertUpdate é o envelope publicado no Redis e repassado aos clientes
type AlertUpdate struct {
	Type    string       `json:"type"`
	Payload AlertPayload `json:"payload"`
}

// AlertPayload traz só o que o hub precisa para rotear; o resto segue intacto
type AlertPayload struct {
	Modality string `json:"modality"`
}
