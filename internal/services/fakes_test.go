package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/utils"
	"gotrike/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		panic(err)
	}
	return log
}

// fakeUserRepo is an in-memory user directory.
type fakeUserRepo struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return user, nil
}

// fakeRideRepo mimics the guarded conditional updates of the Mongo
// repository under a single mutex, which gives the same exactly-one-winner
// semantics the accept race relies on.
type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
}

func (r *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	r.rides[ride.ID] = ride
	return nil
}

func (r *fakeRideRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *ride
	return &copied, nil
}

func (r *fakeRideRepo) List(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Ride
	for _, ride := range r.rides {
		if filter.Status != "" && ride.Status != filter.Status {
			continue
		}
		if filter.TodaGroup != "" && ride.TodaGroup != filter.TodaGroup {
			continue
		}
		if !filter.RiderID.IsZero() && ride.RiderID != filter.RiderID {
			continue
		}
		if !filter.DriverID.IsZero() && (ride.DriverID == nil || *ride.DriverID != filter.DriverID) {
			continue
		}
		copied := *ride
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, int64(len(matched)), nil
}

func (r *fakeRideRepo) AcceptPending(ctx context.Context, id, driverID primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok || ride.Status != models.RideStatusPending {
		return nil, interfaces.ErrPreconditionFailed
	}

	now := time.Now()
	ride.Status = models.RideStatusAccepted
	ride.DriverID = &driverID
	ride.AcceptedAt = &now
	ride.UpdatedAt = now

	copied := *ride
	return &copied, nil
}

func (r *fakeRideRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RideStatus) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok || ride.Status != from {
		return nil, interfaces.ErrPreconditionFailed
	}

	now := time.Now()
	ride.Status = to
	ride.UpdatedAt = now
	switch to {
	case models.RideStatusInProgress:
		ride.StartedAt = &now
	case models.RideStatusCompleted:
		ride.CompletedAt = &now
	}

	copied := *ride
	return &copied, nil
}

func (r *fakeRideRepo) CancelFrom(ctx context.Context, id primitive.ObjectID, allowedFrom []models.RideStatus, cancelledBy models.CancelParty, reason string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, interfaces.ErrPreconditionFailed
	}
	allowed := false
	for _, status := range allowedFrom {
		if ride.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, interfaces.ErrPreconditionFailed
	}

	now := time.Now()
	ride.Status = models.RideStatusCancelled
	ride.CancelledBy = cancelledBy
	ride.CancellationReason = reason
	ride.CancelledAt = &now
	ride.UpdatedAt = now

	copied := *ride
	return &copied, nil
}

func (r *fakeRideRepo) UpdateRoute(ctx context.Context, id primitive.ObjectID, route *models.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	ride.Route = route
	return nil
}

// fakeChatRepo enforces the member_key uniqueness the Mongo index provides.
type fakeChatRepo struct {
	mu       sync.Mutex
	chats    map[primitive.ObjectID]*models.Chat
	byKey    map[string]primitive.ObjectID
	messages map[primitive.ObjectID][]*models.Message

	failSetLastMessage bool
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:    make(map[primitive.ObjectID]*models.Chat),
		byKey:    make(map[string]primitive.ObjectID),
		messages: make(map[primitive.ObjectID][]*models.Message),
	}
}

func (r *fakeChatRepo) CreateChat(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[chat.MemberKey]; exists {
		return interfaces.ErrDuplicateKey
	}

	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	r.chats[chat.ID] = chat
	r.byKey[chat.MemberKey] = chat.ID
	return nil
}

func (r *fakeChatRepo) GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *chat
	return &copied, nil
}

func (r *fakeChatRepo) GetChatByMemberKey(ctx context.Context, memberKey string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[memberKey]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *r.chats[id]
	return &copied, nil
}

func (r *fakeChatRepo) GetChatsByMember(ctx context.Context, memberID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Chat
	for _, chat := range r.chats {
		if chat.HasMember(memberID) {
			copied := *chat
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched, int64(len(matched)), nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	message.UpdatedAt = message.CreatedAt
	r.messages[message.ChatID] = append(r.messages[message.ChatID], message)
	return nil
}

func (r *fakeChatRepo) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failSetLastMessage {
		return interfaces.ErrNotFound
	}

	chat, ok := r.chats[chatID]
	if !ok {
		return interfaces.ErrNotFound
	}
	chat.LastMessage = message
	chat.UnreadCount++
	chat.UpdatedAt = time.Now()
	return nil
}

func (r *fakeChatRepo) GetMessagesByChatID(ctx context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.messages[chatID]
	out := make([]*models.Message, 0, len(stored))
	for _, m := range stored {
		copied := *m
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *fakeChatRepo) MarkAllMessagesRead(ctx context.Context, chatID, readerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked int64
	for _, m := range r.messages[chatID] {
		if m.SenderID == readerID || m.ReadByUser(readerID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: readerID, ReadAt: time.Now()})
		marked++
	}
	if chat, ok := r.chats[chatID]; ok {
		chat.UnreadCount = 0
	}
	return marked, nil
}

// fakeRelay records relayed messages for assertions.
type fakeRelay struct {
	mu     sync.Mutex
	chats  []primitive.ObjectID
	bodies []string
}

func (f *fakeRelay) RelayMessage(chatID primitive.ObjectID, message *models.Message, recipients []primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	f.bodies = append(f.bodies, message.Content)
}

func (f *fakeRelay) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}
