// README: Messaging channel tests: timeline merge, unread counts, send gating, typing.
package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/types"
)

type fakeChatAPI struct {
	mu sync.Mutex

	page    Page
	pageErr error

	sendReply Message
	sendErr   error
	sendCalls int

	marked  [][]string
	markErr error

	typingSignals []bool
}

func (f *fakeChatAPI) Messages(context.Context, types.ID, int, int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageErr != nil {
		return Page{}, f.pageErr
	}
	return f.page, nil
}

func (f *fakeChatAPI) SendMessage(_ context.Context, _ types.ID, text string, mtype MessageType, nonce string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return Message{}, f.sendErr
	}
	reply := f.sendReply
	reply.Content = text
	reply.Type = mtype
	reply.ClientNonce = nonce
	return reply, nil
}

func (f *fakeChatAPI) MarkMessagesRead(_ context.Context, _ types.ID, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, append([]string(nil), ids...))
	return f.markErr
}

func (f *fakeChatAPI) SendTypingIndicator(_ context.Context, _ types.ID, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typingSignals = append(f.typingSignals, typing)
	return nil
}

func (f *fakeChatAPI) typingLog() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.typingSignals...)
}

func (f *fakeChatAPI) markedBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.marked...)
}

func testConfig() Config {
	return Config{
		PageSize:     50,
		PollPageSize: 20,
		PollInterval: time.Hour,
		TypingIdle:   time.Hour,
	}
}

func newTestService(api *fakeChatAPI, status order.Status) *Service {
	return NewService(api, "o1", "p1", func() order.Status { return status }, testConfig())
}

func at(sec int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, sec, 0, time.UTC)
}

func TestLoadSortsAndCountsUnread(t *testing.T) {
	api := &fakeChatAPI{page: Page{Messages: []Message{
		{ID: "m3", SenderType: SenderDriver, Content: "here", CreatedAt: at(30)},
		{ID: "m1", SenderType: SenderPassenger, Content: "hi", CreatedAt: at(10), IsRead: true},
		{ID: "m2", SenderType: SenderDriver, Content: "otw", CreatedAt: at(20)},
	}}}
	svc := newTestService(api, order.StatusAccepted)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	msgs := svc.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Fatalf("messages[%d] = %s, want %s", i, msgs[i].ID, want)
		}
	}

	// Incoming unread messages are auto-marked read on load.
	batches := api.markedBatches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("mark-read batches = %v, want one batch of two ids", batches)
	}
	if svc.UnreadCount() != 0 {
		t.Fatalf("unread = %d after load auto-read, want 0", svc.UnreadCount())
	}
}

func TestSendRejectsEmptyTextBeforeNetwork(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)

	_, err := svc.Send(context.Background(), "   \n\t ", MessageText)
	if !apperrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if api.sendCalls != 0 {
		t.Fatal("backend called for an empty message")
	}
}

func TestSendGatedByOrderStatus(t *testing.T) {
	sendable := map[order.Status]bool{
		order.StatusPendingMatch:   false,
		order.StatusDriverAssigned: true,
		order.StatusAccepted:       true,
		order.StatusArrived:        true,
		order.StatusInProgress:     true,
		order.StatusCompleted:      false,
		order.StatusPaid:           false,
		order.StatusCancelled:      false,
	}
	for status, want := range sendable {
		api := &fakeChatAPI{}
		svc := newTestService(api, status)
		if got := svc.CanSend(); got != want {
			t.Errorf("CanSend() in %s = %v, want %v", status, got, want)
		}
		_, err := svc.Send(context.Background(), "hello", MessageText)
		if want && err != nil {
			t.Errorf("send in %s failed: %v", status, err)
		}
		if !want {
			if !apperrors.IsValidation(err) {
				t.Errorf("send in %s: err = %v, want validation error", status, err)
			}
			if api.sendCalls != 0 {
				t.Errorf("send in %s reached the backend", status)
			}
		}
	}
}

func TestSendAdoptsServerIDAndTimestamp(t *testing.T) {
	api := &fakeChatAPI{sendReply: Message{ID: "srv1", CreatedAt: at(42)}}
	svc := newTestService(api, order.StatusAccepted)

	msg, err := svc.Send(context.Background(), "  see you at the gate  ", MessageText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "srv1" {
		t.Fatalf("id = %s, want server id srv1", msg.ID)
	}
	if !msg.CreatedAt.Equal(at(42)) {
		t.Fatalf("timestamp = %v, want server timestamp", msg.CreatedAt)
	}
	if msg.Content != "see you at the gate" {
		t.Fatalf("content = %q, want trimmed text", msg.Content)
	}
	if msg.SenderType != SenderPassenger || !msg.IsRead {
		t.Fatal("own message must be a read passenger message")
	}
	if svc.UnreadCount() != 0 {
		t.Fatal("own message bumped the unread count")
	}
	if got := svc.Messages(); len(got) != 1 || got[0].ID != "srv1" {
		t.Fatalf("timeline = %v, want the sent message", got)
	}
}

func TestSendFallsBackToNonceID(t *testing.T) {
	api := &fakeChatAPI{} // backend echoes no id
	svc := newTestService(api, order.StatusAccepted)

	msg, err := svc.Send(context.Background(), "hello", MessageText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == "" || msg.ID != msg.ClientNonce {
		t.Fatalf("id = %q nonce = %q, want nonce used as the optimistic id", msg.ID, msg.ClientNonce)
	}
	if msg.CreatedAt.IsZero() {
		t.Fatal("optimistic message has no timestamp")
	}
}

func TestSendFailurePropagatesWithoutAppending(t *testing.T) {
	api := &fakeChatAPI{sendErr: &apperrors.NetworkError{Detail: "timeout"}}
	svc := newTestService(api, order.StatusAccepted)

	_, err := svc.Send(context.Background(), "hello", MessageText)
	if !apperrors.IsNetwork(err) {
		t.Fatalf("err = %v, want network error", err)
	}
	if got := svc.Messages(); len(got) != 0 {
		t.Fatalf("failed send left %d messages in the timeline", len(got))
	}
}

func TestPollMergesOnlyUnseenMessages(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)

	sent, err := svc.Send(context.Background(), "on my way down", MessageText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// The poll redelivers our own message under a fresh server id plus a
	// genuinely new driver message.
	api.mu.Lock()
	api.page = Page{Messages: []Message{
		{ID: "srv9", ClientNonce: sent.ClientNonce, SenderType: SenderPassenger, Content: "on my way down", CreatedAt: at(1)},
		{ID: "d1", SenderType: SenderDriver, Content: "parked outside", CreatedAt: at(2)},
	}}
	api.mu.Unlock()

	svc.pollTick(context.Background())

	msgs := svc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after poll, want 2 (own message deduplicated)", len(msgs))
	}
	if svc.UnreadCount() != 1 {
		t.Fatalf("unread = %d, want 1 for the driver message", svc.UnreadCount())
	}

	// Redelivery is idempotent.
	svc.pollTick(context.Background())
	if got := svc.Messages(); len(got) != 2 {
		t.Fatalf("got %d messages after repeat poll, want 2", len(got))
	}
}

func TestPollAutoReadsWhileOpen(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)
	svc.SetOpen(true)

	api.page = Page{Messages: []Message{
		{ID: "d1", SenderType: SenderDriver, Content: "here", CreatedAt: at(1)},
	}}
	svc.pollTick(context.Background())

	if svc.UnreadCount() != 0 {
		t.Fatalf("unread = %d with the channel open, want 0", svc.UnreadCount())
	}
	batches := api.markedBatches()
	if len(batches) != 1 || len(batches[0]) != 1 || batches[0][0] != "d1" {
		t.Fatalf("mark-read batches = %v, want [[d1]]", batches)
	}
}

func TestPollSwallowsNetworkError(t *testing.T) {
	api := &fakeChatAPI{pageErr: &apperrors.NetworkError{Detail: "timeout"}}
	svc := newTestService(api, order.StatusAccepted)

	svc.pollTick(context.Background())
	if got := svc.Messages(); len(got) != 0 {
		t.Fatalf("poll error produced %d messages", len(got))
	}
}

func TestMarkReadFlipsLocalStateDespiteBackendFailure(t *testing.T) {
	api := &fakeChatAPI{page: Page{Messages: []Message{
		{ID: "d1", SenderType: SenderDriver, Content: "here", CreatedAt: at(1)},
	}}}
	svc := newTestService(api, order.StatusAccepted)
	svc.pollTick(context.Background())
	if svc.UnreadCount() != 1 {
		t.Fatalf("unread = %d before mark-read, want 1", svc.UnreadCount())
	}

	api.mu.Lock()
	api.markErr = &apperrors.NetworkError{Detail: "timeout"}
	api.mu.Unlock()

	err := svc.MarkRead(context.Background(), []string{"d1"})
	if !apperrors.IsNetwork(err) {
		t.Fatalf("err = %v, want the backend failure surfaced", err)
	}
	if svc.UnreadCount() != 0 {
		t.Fatal("unread badge stuck after local mark-read")
	}
}

func TestAppendSystemMessage(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)

	m := svc.AppendSystem("Trip modification requested")
	if m.SenderType != SenderSystem || m.Type != MessageSystem || !m.IsRead {
		t.Fatalf("system message fields wrong: %+v", m)
	}
	if svc.UnreadCount() != 0 {
		t.Fatal("system message bumped the unread count")
	}
	if got := svc.Messages(); len(got) != 1 {
		t.Fatalf("timeline has %d messages, want 1", len(got))
	}
}

func TestTypingIndicatorEdges(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)

	svc.OnTextChanged("h")
	svc.OnTextChanged("he")
	svc.OnTextChanged("hel")
	if !svc.Typing() {
		t.Fatal("typing = false while text is present")
	}
	if got := api.typingLog(); len(got) != 1 || !got[0] {
		t.Fatalf("typing signals = %v, want a single true", got)
	}

	svc.OnTextChanged("")
	if svc.Typing() {
		t.Fatal("typing = true after the text was cleared")
	}
	if got := api.typingLog(); len(got) != 2 || got[1] {
		t.Fatalf("typing signals = %v, want [true false]", got)
	}
}

func TestTypingExpiresAfterIdle(t *testing.T) {
	api := &fakeChatAPI{}
	cfg := testConfig()
	cfg.TypingIdle = 20 * time.Millisecond
	svc := NewService(api, "o1", "p1", func() order.Status { return order.StatusAccepted }, cfg)

	svc.OnTextChanged("hold on")
	if !svc.Typing() {
		t.Fatal("typing = false right after a keystroke")
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.Typing() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.Typing() {
		t.Fatal("typing never expired after idle")
	}
	if got := api.typingLog(); len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("typing signals = %v, want [true false]", got)
	}
}

func TestStopClearsTyping(t *testing.T) {
	api := &fakeChatAPI{}
	svc := newTestService(api, order.StatusAccepted)

	svc.OnTextChanged("typing then closing")
	svc.Stop()

	if svc.Typing() {
		t.Fatal("typing = true after Stop")
	}
	if got := api.typingLog(); len(got) != 2 || got[1] {
		t.Fatalf("typing signals = %v, want stopped-typing sent on Stop", got)
	}
}

var errBoom = errors.New("boom")

func TestLoadPropagatesFetchError(t *testing.T) {
	api := &fakeChatAPI{pageErr: errBoom}
	svc := newTestService(api, order.StatusAccepted)
	if err := svc.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("load err = %v, want boom", err)
	}
}
