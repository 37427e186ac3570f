package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-shell/internal/domain"
	"chat-shell/internal/format"
	"chat-shell/internal/kv"
	"chat-shell/internal/llm"
	"chat-shell/internal/local"
	"chat-shell/internal/metrics"
)

// ConversationsKey es la clave del snapshot de conversaciones en el Store.
const ConversationsKey = "conversations"

const sidebarTitleRunes = 30

var (
	ErrSessionClosed        = errors.New("chat session closed")
	ErrReplyInFlight        = errors.New("assistant reply already in flight")
	ErrReplyFailed          = errors.New("assistant reply failed")
	ErrCorruptSnapshot      = errors.New("corrupt conversations snapshot")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrChatNotConfigured    = errors.New("chat session not configured")
)

// Observer recibe una copia de la vista cada vez que cambia.
type Observer func(domain.View)

// Confirmer pide confirmación interactiva al usuario.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapta una función a Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

type ChatSessionDeps struct {
	Store   kv.Store
	LLM     llm.LLMClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type ChatSessionOptions struct {
	Language     local.Language
	ReplyTimeout time.Duration
	Now          func() time.Time
}

// ChatSession es el controlador de conversaciones: guarda el historial, lo persiste
// en el Store y mantiene la vista de la conversación activa.
type ChatSession struct {
	deps ChatSessionDeps
	opts ChatSessionOptions

	mu            sync.Mutex
	order         []string
	conversations map[string][]domain.Message
	activeID      string
	messages      []domain.Message
	typing        bool
	welcome       bool
	pending       bool
	generation    uint64
	lastID        int64
	closed        bool

	observers  map[int]Observer
	nextObsKey int
}

func NewChatSession(deps ChatSessionDeps, opts ChatSessionOptions) *ChatSession {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Language == "" {
		opts.Language = local.Fr
	}
	return &ChatSession{
		deps:          deps,
		opts:          opts,
		conversations: make(map[string][]domain.Message),
		welcome:       true,
		observers:     make(map[int]Observer),
	}
}

// Init carga el snapshot persistido y lo fusiona con el estado en memoria.
// Es el único punto de reconciliación entre ambos.
func (s *ChatSession) Init(ctx context.Context) error {
	if s == nil || s.deps.Store == nil || s.deps.LLM == nil {
		return ErrChatNotConfigured
	}
	stored, err := s.LoadConversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	for _, conv := range stored {
		if _, ok := s.conversations[conv.ID]; ok {
			continue
		}
		s.conversations[conv.ID] = conv.Messages
		s.order = append(s.order, conv.ID)
	}
	view, observers := s.snapshotLocked()
	s.mu.Unlock()

	s.deps.Logger.Info("chat session initialized", zap.Int("conversations", len(stored)))
	notify(observers, view)
	return nil
}

// Close desconecta a los observadores; los comandos posteriores fallan.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.observers = make(map[int]Observer)
}

// Subscribe registra un observador y devuelve la función para darlo de baja.
func (s *ChatSession) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextObsKey
	s.nextObsKey++
	s.observers[key] = o
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, key)
	}
}

// View devuelve una copia del estado actual de la vista.
func (s *ChatSession) View() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Conversations devuelve las conversaciones en memoria en orden de creación.
func (s *ChatSession) Conversations() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.Conversation{
			ID:       id,
			Messages: append([]domain.Message(nil), s.conversations[id]...),
		})
	}
	return out
}

// CreateConversation abre una conversación nueva y la marca activa. No persiste nada.
func (s *ChatSession) CreateConversation() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	id := s.createLocked()
	view, observers := s.snapshotLocked()
	s.mu.Unlock()

	s.deps.Logger.Info("conversation created", zap.String("conversation_id", id))
	notify(observers, view)
	return id, nil
}

// SubmitMessage envía el texto del usuario y espera la respuesta del asistente.
// Texto vacío es un no-op. Con una respuesta pendiente devuelve ErrReplyInFlight.
func (s *ChatSession) SubmitMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	if s.pending {
		s.mu.Unlock()
		s.deps.Metrics.Exchange(metrics.OutcomeRejected)
		return ErrReplyInFlight
	}
	if s.activeID == "" {
		s.createLocked()
	}
	s.welcome = false
	s.messages = append(s.messages, domain.Message{Content: format.Message(text), IsUser: true})
	s.typing = true
	s.pending = true
	conversationID := s.activeID
	generation := s.generation
	view, observers := s.snapshotLocked()
	s.mu.Unlock()
	notify(observers, view)

	reply, replyErr := s.generate(ctx, text)

	s.mu.Lock()
	s.pending = false
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if generation != s.generation {
		// La vista se reemplazó mientras esperábamos: la respuesta ya no tiene dónde pintarse.
		s.mu.Unlock()
		s.deps.Logger.Warn("reply dropped, conversation switched",
			zap.String("conversation_id", conversationID),
			zap.Error(replyErr),
		)
		return nil
	}
	s.typing = false

	if replyErr != nil {
		s.messages = append(s.messages, domain.Message{
			Content: format.Message(local.ReplyError.Text(s.opts.Language)),
			IsUser:  false,
		})
		view, observers = s.snapshotLocked()
		s.mu.Unlock()

		s.deps.Logger.Error("assistant reply failed", zap.String("conversation_id", conversationID), zap.Error(replyErr))
		s.deps.Metrics.Exchange(metrics.OutcomeFailed)
		notify(observers, view)
		return fmt.Errorf("%w: %w", ErrReplyFailed, replyErr)
	}

	s.messages = append(s.messages, domain.Message{Content: format.Message(reply), IsUser: false})
	persistErr := s.saveCurrentLocked(ctx)
	view, observers = s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, view)
	if persistErr != nil {
		s.deps.Logger.Error("persist conversations failed", zap.String("conversation_id", conversationID), zap.Error(persistErr))
		return persistErr
	}
	s.deps.Metrics.Exchange(metrics.OutcomeOK)
	return nil
}

// SubmitExample envía uno de los prompts de ejemplo de la pantalla de bienvenida.
func (s *ChatSession) SubmitExample(ctx context.Context, prompt string) error {
	return s.SubmitMessage(ctx, prompt)
}

// LoadConversation pinta la conversación id y la marca activa. Un id desconocido es un no-op.
func (s *ChatSession) LoadConversation(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	stored, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		s.deps.Logger.Debug("load of unknown conversation ignored", zap.String("conversation_id", id))
		return nil
	}
	s.activeID = id
	s.messages = append([]domain.Message(nil), stored...)
	s.typing = false
	s.welcome = false
	s.generation++
	view, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, view)
	return nil
}

// ClearAll borra todas las conversaciones, en memoria y en el Store, previa confirmación.
// Devuelve false si el usuario no confirmó.
func (s *ChatSession) ClearAll(ctx context.Context, confirmer Confirmer) (bool, error) {
	if confirmer == nil {
		return false, ErrConfirmationRequired
	}
	if !confirmer.Confirm(ctx, local.ConfirmClearAll.Text(s.opts.Language)) {
		return false, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	s.conversations = make(map[string][]domain.Message)
	s.order = nil
	s.activeID = ""
	s.messages = nil
	s.typing = false
	s.welcome = true
	s.generation++
	err := s.deps.Store.Remove(ctx, ConversationsKey)
	view, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, view)
	if err != nil {
		s.deps.Logger.Error("remove conversations failed", zap.Error(err))
		return true, fmt.Errorf("remove conversations: %w", err)
	}
	s.deps.Logger.Info("all conversations cleared")
	return true, nil
}

// LoadConversations lee y decodifica el snapshot persistido.
func (s *ChatSession) LoadConversations(ctx context.Context) ([]domain.Conversation, error) {
	raw, err := s.deps.Store.Get(ctx, ConversationsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []domain.Conversation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversations: %w", err)
	}
	return decodeSnapshot(raw)
}

func (s *ChatSession) generate(ctx context.Context, text string) (string, error) {
	if s.opts.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReplyTimeout)
		defer cancel()
	}
	return s.deps.LLM.Generate(ctx, text)
}

func (s *ChatSession) createLocked() string {
	id := s.opts.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for {
		if _, taken := s.conversations[strconv.FormatInt(id, 10)]; !taken {
			break
		}
		id++
	}
	s.lastID = id

	convID := strconv.FormatInt(id, 10)
	s.conversations[convID] = []domain.Message{}
	s.order = append(s.order, convID)
	s.activeID = convID
	s.messages = nil
	s.typing = false
	s.welcome = false
	s.generation++
	return convID
}

// saveCurrentLocked copia la vista renderizada a la conversación activa y sobrescribe el snapshot.
func (s *ChatSession) saveCurrentLocked(ctx context.Context) error {
	if s.activeID == "" {
		return nil
	}
	if _, ok := s.conversations[s.activeID]; !ok {
		s.order = append(s.order, s.activeID)
	}
	s.conversations[s.activeID] = append([]domain.Message(nil), s.messages...)

	entries := make([]snapshotEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, snapshotEntry{ID: id, Messages: s.conversations[id]})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal conversations: %w", err)
	}
	if err := s.deps.Store.Set(ctx, ConversationsKey, string(raw)); err != nil {
		return fmt.Errorf("set conversations: %w", err)
	}
	return nil
}

func (s *ChatSession) viewLocked() domain.View {
	view := domain.View{
		ActiveID:       s.activeID,
		Messages:       append([]domain.Message{}, s.messages...),
		Typing:         s.typing,
		WelcomeVisible: s.welcome,
		Sidebar:        make([]domain.SidebarItem, 0, len(s.order)),
	}
	for _, id := range s.order {
		view.Sidebar = append(view.Sidebar, domain.SidebarItem{
			ID:     id,
			Title:  s.titleFor(s.conversations[id]),
			Active: id == s.activeID,
		})
	}
	return view
}

func (s *ChatSession) snapshotLocked() (domain.View, []Observer) {
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	return s.viewLocked(), observers
}

func (s *ChatSession) titleFor(messages []domain.Message) string {
	if len(messages) == 0 || messages[0].Content == "" {
		return local.NewConversationTitle.Text(s.opts.Language)
	}
	title := []rune(format.PlainText(messages[0].Content))
	if len(title) > sidebarTitleRunes {
		title = title[:sidebarTitleRunes]
	}
	return string(title)
}

func notify(observers []Observer, view domain.View) {
	for _, o := range observers {
		o(view.Clone())
	}
}

// snapshotEntry se serializa como el par [id, mensajes].
type snapshotEntry struct {
	ID       string
	Messages []domain.Message
}

func (e snapshotEntry) MarshalJSON() ([]byte, error) {
	messages := e.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	return json.Marshal([]any{e.ID, messages})
}

func (e *snapshotEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("expected [id, messages] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("conversation id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Messages); err != nil {
		return fmt.Errorf("conversation %s messages: %w", e.ID, err)
	}
	if e.Messages == nil {
		e.Messages = []domain.Message{}
	}
	return nil
}

func decodeSnapshot(raw string) ([]domain.Conversation, error) {
	var entries []snapshotEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	out := make([]domain.Conversation, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Conversation{ID: e.ID, Messages: e.Messages})
	}
	return out, nil
}
