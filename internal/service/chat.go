package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/agent"
	"github.com/capitalize-ai/leasing-assistant/internal/cache"
	"github.com/capitalize-ai/leasing-assistant/internal/events"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

// ErrValidation marks a request rejected before any state changed.
var ErrValidation = errors.New("invalid request")

// History query bounds.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// MessageStore is the durable message log.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *model.Message) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]model.Message, error)
	MessageUserIDs(ctx context.Context) ([]string, error)
}

// Runner executes a top-level prompt. *agent.Agent implements it.
type Runner interface {
	Run(ctx context.Context, p agent.Prompt, history []model.Message, requestID string) (*model.BookingResponse, error)
}

// ChatOptions tunes the turn pipeline.
type ChatOptions struct {
	// HistoryWindow is how many cached messages, hidden ones included, are
	// sent to the model.
	HistoryWindow int
	// WarmLimit is how many recent messages per user are loaded into the cache.
	WarmLimit int
	// RouterFailClosed treats ambiguous classifications as malicious.
	RouterFailClosed bool
}

// ChatService runs chat turns.
type ChatService struct {
	messages MessageStore
	users    *UserService
	cache    *cache.ConversationCache
	runner   Runner
	events   events.Publisher
	logger   *logger.Logger
	opts     ChatOptions
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewChatService creates a new chat service. A nil publisher discards events.
func NewChatService(
	messages MessageStore,
	users *UserService,
	c *cache.ConversationCache,
	runner Runner,
	pub events.Publisher,
	log *logger.Logger,
	opts ChatOptions,
) *ChatService {
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 30
	}
	if opts.WarmLimit <= 0 {
		opts.WarmLimit = 50
	}
	return &ChatService{
		messages: messages,
		users:    users,
		cache:    c,
		runner:   runner,
		events:   pub,
		logger:   log,
		opts:     opts,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock serializes turns of one user.
func (s *ChatService) lock(userID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Reply runs one chat turn: it records the lead's message, asks the agent for
// an outcome and records the assistant's reply.
func (s *ChatService) Reply(ctx context.Context, req *model.ReplyRequest) (*model.ReplyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	start := time.Now()

	user, err := s.users.GetOrCreate(ctx, req.Lead.Email, req.Lead.Name, req.Preferences)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(user.ID)
	defer unlock()

	if err := s.ensureLoaded(ctx, user.ID); err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    user.ID,
		Role:      model.RoleUser,
		Content:   req.Message,
		Visible:   true,
		Step:      model.StepInitial,
		CreatedAt: s.now().UTC(),
	}
	if err := s.record(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	log := s.logger.WithRequest(userMsg.ID).WithUser(user.ID, user.Email)

	history := s.cache.History(user.ID, s.opts.HistoryWindow, false)
	router := agent.NewRouter(req.Message, turnContext(req, user), s.opts.RouterFailClosed)

	out, err := s.runner.Run(ctx, router, history, userMsg.ID)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		s.publish(ctx, log, &model.TurnEvent{
			Type:        model.EventTypeError,
			UserID:      user.ID,
			Email:       user.Email,
			CommunityID: req.CommunityID,
			ParentID:    userMsg.ID,
			Reason:      err.Error(),
		})
		return nil, fmt.Errorf("running turn: %w", err)
	}

	assistantMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    user.ID,
		ParentID:  &userMsg.ID,
		Role:      model.RoleAssistant,
		Content:   out.Reply,
		Visible:   true,
		Step:      model.StepResponse,
		CreatedAt: s.now().UTC(),
	}
	if err := s.record(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	eventType := model.EventTypeTurn
	if out.Action == model.ActionHandoffHuman {
		eventType = model.EventTypeHandoff
	}
	s.publish(ctx, log, &model.TurnEvent{
		Type:        eventType,
		UserID:      user.ID,
		Email:       user.Email,
		CommunityID: req.CommunityID,
		MessageID:   assistantMsg.ID,
		ParentID:    userMsg.ID,
		Action:      out.Action,
		ProposeTime: out.ProposeTime,
	})

	metrics.TurnsTotal.WithLabelValues(string(out.Action)).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	log.Info("turn recorded", zap.String("action", string(out.Action)))

	return &model.ReplyResponse{
		ID:          assistantMsg.ID,
		Reply:       out.Reply,
		Action:      out.Action,
		ProposeTime: out.ProposeTime,
		CreatedDate: assistantMsg.CreatedAt,
		ParentID:    userMsg.ID,
	}, nil
}

// record writes msg durably and only then appends it to the cache.
func (s *ChatService) record(ctx context.Context, msg *model.Message) error {
	if err := s.messages.SaveMessage(ctx, msg); err != nil {
		return err
	}
	metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()
	return s.cache.Append(msg.UserID, *msg)
}

func (s *ChatService) publish(ctx context.Context, log *logger.Logger, ev *model.TurnEvent) {
	ev.ID = uuid.NewString()
	ev.CreatedAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn("publishing turn event failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// ensureLoaded fills the cache for a user with no cached messages from the
// durable log. Callers hold the user's turn lock.
func (s *ChatService) ensureLoaded(ctx context.Context, userID string) error {
	if s.cache.Len(userID) > 0 {
		return nil
	}
	msgs, err := s.messages.RecentMessages(ctx, userID, s.opts.WarmLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(msgs) > 0 {
		s.cache.BulkLoad(userID, msgs)
	}
	return nil
}

// History returns a lead's recent messages, oldest first. An unknown lead has
// an empty history.
func (s *ChatService) History(ctx context.Context, email string, limit int, includeHidden bool) (*model.HistoryResponse, error) {
	if err := model.ValidateEmail(NormalizeEmail(email)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	user, err := s.users.Lookup(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return &model.HistoryResponse{Messages: []model.Message{}, Count: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	unlock := s.lock(user.ID)
	err = s.ensureLoaded(ctx, user.ID)
	unlock()
	if err != nil {
		return nil, err
	}

	msgs := s.cache.History(user.ID, limit, !includeHidden)
	return &model.HistoryResponse{Messages: msgs, Count: len(msgs)}, nil
}

// Warm loads each user's most recent messages into the cache. Users whose log
// is already cached are left alone, so Warm may run again while the service
// accepts turns.
func (s *ChatService) Warm(ctx context.Context) error {
	ids, err := s.messages.MessageUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	cached := make(map[string]bool)
	for _, id := range s.cache.Identities() {
		cached[id] = true
	}

	loaded, total := 0, 0
	for _, id := range ids {
		if cached[id] {
			continue
		}
		msgs, err := s.messages.RecentMessages(ctx, id, s.opts.WarmLimit)
		if err != nil {
			return fmt.Errorf("loading history for %s: %w", id, err)
		}
		s.cache.BulkLoad(id, msgs)
		loaded++
		total += len(msgs)
	}

	s.logger.Info("cache warmed",
		zap.Int("users", loaded),
		zap.Int("messages", total),
		zap.Int("cached_users", len(s.cache.Identities())),
	)
	return nil
}

func turnContext(req *model.ReplyRequest, u *model.User) agent.TurnContext {
	tc := agent.TurnContext{
		CommunityID: req.CommunityID,
		Name:        strings.TrimSpace(req.Lead.Name),
		Email:       u.Email,
	}
	if v, ok := u.Preferences["move_in"].(string); ok {
		tc.MoveInDate = v
	}
	if n, ok := intPreference(u.Preferences["bedrooms"]); ok {
		tc.Bedrooms = &n
	}
	return tc
}

func intPreference(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
