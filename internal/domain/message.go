package domain

// Message es un mensaje ya renderizado de una conversación.
type Message struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

// Conversation es una secuencia ordenada de mensajes persistida como unidad.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}
