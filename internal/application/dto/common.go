package dto

// ErrorResponse cuerpo de error HTTP.
// Details lleva los mensajes del SRI (código y texto) cuando el error proviene de un rechazo.
type ErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []SRIMessageDTO `json:"details,omitempty"`
}

// SRIMessageDTO mensaje del SRI tal como lo devolvió el web service.
type SRIMessageDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
	Type    string `json:"type,omitempty"`
}
