package domain

// SidebarItem representa una conversación en el listado lateral.
type SidebarItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// View es el estado observable del chat: lo que la capa de UI debe pintar.
type View struct {
	ActiveID       string        `json:"active_id,omitempty"`
	Messages       []Message     `json:"messages"`
	Typing         bool          `json:"typing"`
	WelcomeVisible bool          `json:"welcome_visible"`
	Sidebar        []SidebarItem `json:"sidebar"`
}

// Clone devuelve una copia profunda de la vista.
func (v View) Clone() View {
	out := v
	out.Messages = append([]Message(nil), v.Messages...)
	out.Sidebar = append([]SidebarItem(nil), v.Sidebar...)
	return out
}
