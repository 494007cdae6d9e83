// README: Messaging channel: timeline, unread counts, polling, typing indicator.
package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/sched"
	"ridetrack/internal/types"
)

type API interface {
	Messages(ctx context.Context, orderID types.ID, page, limit int) (Page, error)
	SendMessage(ctx context.Context, orderID types.ID, text string, mtype MessageType, nonce string) (Message, error)
	MarkMessagesRead(ctx context.Context, orderID types.ID, ids []string) error
	SendTypingIndicator(ctx context.Context, orderID types.ID, typing bool) error
}

type Config struct {
	PageSize     int
	PollPageSize int
	PollInterval time.Duration
	TypingIdle   time.Duration
}

// sendableStatuses is the window during which the passenger may message
// the driver.
var sendableStatuses = map[order.Status]bool{
	order.StatusDriverAssigned: true,
	order.StatusAccepted:       true,
	order.StatusArrived:        true,
	order.StatusInProgress:     true,
}

// Service owns the message list; every other component reads copies.
// The list stays sorted ascending by timestamp and ids stay unique.
type Service struct {
	api      API
	status   func() order.Status
	cfg      Config
	orderID  types.ID
	senderID types.ID

	mu       sync.Mutex
	messages []Message
	seen     map[string]struct{} // ids and nonces already held
	unread   int
	open     bool
	typing   bool

	pollTask    *sched.Task
	typingTimer *sched.Timer
}

func NewService(api API, orderID, senderID types.ID, status func() order.Status, cfg Config) *Service {
	s := &Service{
		api:      api,
		status:   status,
		cfg:      cfg,
		orderID:  orderID,
		senderID: senderID,
		seen:     make(map[string]struct{}),
	}
	s.pollTask = sched.NewTask(cfg.PollInterval, s.pollTick)
	s.typingTimer = sched.NewTimer(cfg.TypingIdle, s.typingExpired)
	return s
}

// Start begins polling for new messages.
func (s *Service) Start() {
	s.pollTask.Start()
}

// Stop cancels polling and the typing idle timer, clearing the typing
// signal if it was up. Idempotent.
func (s *Service) Stop() {
	s.pollTask.Stop()
	s.typingTimer.Stop()
	s.mu.Lock()
	wasTyping := s.typing
	s.typing = false
	s.mu.Unlock()
	if wasTyping {
		s.sendTyping(false)
	}
}

// SetOpen marks whether the caller currently shows the channel; while
// open, incoming driver messages are auto-marked read.
func (s *Service) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// Load fetches the first page, sorts it, computes the unread count and
// auto-marks incoming unread messages as read.
func (s *Service) Load(ctx context.Context) error {
	page, err := s.api.Messages(ctx, s.orderID, 1, s.cfg.PageSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = s.messages[:0]
	s.seen = make(map[string]struct{})
	for _, m := range page.Messages {
		s.insertLocked(m)
	}
	var unreadIDs []string
	for _, m := range s.messages {
		if !m.IsRead && m.SenderType != SenderPassenger {
			unreadIDs = append(unreadIDs, m.ID)
		}
	}
	s.recountLocked()
	s.mu.Unlock()

	if len(unreadIDs) > 0 {
		if err := s.MarkRead(ctx, unreadIDs); err != nil {
			log.Printf("chat %s: auto mark-read failed: %v", s.orderID, err)
		}
	}
	return nil
}

// Send validates the text locally, gates on the order status, calls the
// backend, then appends an optimistic local copy. The client nonce
// doubles as the optimistic id; if the backend already assigned an id
// and timestamp, the local copy adopts them.
func (s *Service) Send(ctx context.Context, text string, mtype MessageType) (Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Message{}, &apperrors.ValidationError{Detail: "message text is empty"}
	}
	if !s.CanSend() {
		return Message{}, &apperrors.ValidationError{Detail: "messaging is closed for the current order status"}
	}

	nonce := uuid.NewString()
	sent, err := s.api.SendMessage(ctx, s.orderID, trimmed, mtype, nonce)
	if err != nil {
		return Message{}, err
	}

	local := sent
	if local.ID == "" {
		local.ID = nonce
	}
	if local.CreatedAt.IsZero() {
		local.CreatedAt = time.Now()
	}
	local.OrderID = s.orderID
	local.SenderID = s.senderID
	local.SenderType = SenderPassenger
	local.Type = mtype
	local.Content = trimmed
	local.IsRead = true
	local.ClientNonce = nonce

	s.mu.Lock()
	s.insertLocked(local)
	s.recountLocked()
	s.mu.Unlock()
	return local, nil
}

// MarkRead flips isRead for the given ids. The backend call is best
// effort; local state is updated regardless so the unread badge never
// sticks, and the error is returned for callers that want to surface it.
func (s *Service) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.api.MarkMessagesRead(ctx, s.orderID, ids)

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	for i := range s.messages {
		if _, ok := want[s.messages[i].ID]; ok {
			s.messages[i].IsRead = true
		}
	}
	s.recountLocked()
	s.mu.Unlock()
	return err
}

// AppendSystem adds a local system message to the timeline.
func (s *Service) AppendSystem(content string) Message {
	m := Message{
		ID:         uuid.NewString(),
		OrderID:    s.orderID,
		SenderType: SenderSystem,
		Type:       MessageSystem,
		Content:    content,
		CreatedAt:  time.Now(),
		IsRead:     true,
	}
	s.mu.Lock()
	s.insertLocked(m)
	s.mu.Unlock()
	return m
}

// OnTextChanged drives the idle/typing machine. The indicator is sent
// once per edge; every keystroke re-arms the idle timer.
func (s *Service) OnTextChanged(text string) {
	empty := strings.TrimSpace(text) == ""

	s.mu.Lock()
	switch {
	case empty && s.typing:
		s.typing = false
		s.mu.Unlock()
		s.typingTimer.Stop()
		s.sendTyping(false)
	case !empty && !s.typing:
		s.typing = true
		s.mu.Unlock()
		s.typingTimer.Reset()
		s.sendTyping(true)
	case !empty:
		s.mu.Unlock()
		s.typingTimer.Reset()
	default:
		s.mu.Unlock()
	}
}

func (s *Service) typingExpired() {
	s.mu.Lock()
	if !s.typing {
		s.mu.Unlock()
		return
	}
	s.typing = false
	s.mu.Unlock()
	s.sendTyping(false)
}

func (s *Service) sendTyping(on bool) {
	if err := s.api.SendTypingIndicator(context.Background(), s.orderID, on); err != nil {
		log.Printf("chat %s: typing indicator failed: %v", s.orderID, err)
	}
}

func (s *Service) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// CanSend reports whether the order status currently permits messaging.
func (s *Service) CanSend() bool {
	return sendableStatuses[s.status()]
}

func (s *Service) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// pollTick fetches a recent page and merges only unseen messages, in
// timestamp order. Redelivery is idempotent: duplicate ids or nonces
// are dropped.
func (s *Service) pollTick(ctx context.Context) {
	page, err := s.api.Messages(ctx, s.orderID, 1, s.cfg.PollPageSize)
	if err != nil {
		if !apperrors.IsNetwork(err) && ctx.Err() == nil {
			log.Printf("chat %s: poll failed: %v", s.orderID, err)
		}
		return
	}

	var autoRead []string
	s.mu.Lock()
	for _, m := range page.Messages {
		if s.heldLocked(m) {
			continue
		}
		if s.open && m.SenderType != SenderPassenger && !m.IsRead {
			m.IsRead = true
			autoRead = append(autoRead, m.ID)
		}
		s.insertLocked(m)
	}
	s.recountLocked()
	s.mu.Unlock()

	if len(autoRead) > 0 {
		if err := s.api.MarkMessagesRead(ctx, s.orderID, autoRead); err != nil {
			log.Printf("chat %s: auto mark-read failed: %v", s.orderID, err)
		}
	}
}

func (s *Service) heldLocked(m Message) bool {
	if _, ok := s.seen[m.ID]; ok {
		return true
	}
	if m.ClientNonce != "" {
		if _, ok := s.seen[m.ClientNonce]; ok {
			return true
		}
	}
	return false
}

// insertLocked keeps the list sorted ascending by timestamp and the
// seen set in sync.
func (s *Service) insertLocked(m Message) {
	if s.heldLocked(m) {
		return
	}
	i := len(s.messages)
	for i > 0 && s.messages[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	s.messages = append(s.messages, Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m

	s.seen[m.ID] = struct{}{}
	if m.ClientNonce != "" {
		s.seen[m.ClientNonce] = struct{}{}
	}
}

// recountLocked recomputes the unread invariant: unread messages from
// anyone but the passenger.
func (s *Service) recountLocked() {
	n := 0
	for _, m := range s.messages {
		if !m.IsRead && m.SenderType != SenderPassenger {
			n++
		}
	}
	s.unread = n
}
