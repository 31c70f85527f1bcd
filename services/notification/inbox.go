package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"nahio/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// inboxLimit bounds the entries kept per user; the oldest are dropped.
const inboxLimit = 100

// InboxStore keeps per-user notification entries.
type InboxStore interface {
	// Add stores the entry unless one with the same id exists.
	Add(ctx context.Context, n models.Notification) error
	// List returns the user's entries, newest first.
	List(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// InboxNotifier writes one entry per recipient of each event.
type InboxNotifier struct {
	Store InboxStore
	Now   func() time.Time
}

func (n *InboxNotifier) Notify(ctx context.Context, event models.AppointmentEvent) error {
	msg := Render(event)
	created := event.OccurredAt
	if created.IsZero() {
		created = n.now()
	}
	var errs []error
	for _, uid := range event.Recipients() {
		entry := models.Notification{
			ID:        entryID(event, uid),
			UserID:    uid,
			Type:      models.NotificationAppointment,
			Title:     msg.Title,
			Body:      msg.Body,
			Data:      eventData(event),
			CreatedAt: created,
		}
		if err := n.Store.Add(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("inbox: failed to store notification for %s: %w", uid, err))
		}
	}
	return errors.Join(errs...)
}

// entryID is stable per event and recipient, so a redelivered event does not
// add a second entry.
func entryID(event models.AppointmentEvent, uid string) string {
	if event.ID == "" {
		return uuid.NewString()
	}
	return event.ID + ":" + uid
}

func (n *InboxNotifier) now() time.Time {
	if n.Now == nil {
		return time.Now().UTC()
	}
	return n.Now()
}

func sortNewestFirst(list []models.Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// RedisInbox stores each user's entries in a hash keyed by notification id.
type RedisInbox struct {
	Client *redis.Client
}

func inboxKey(userID string) string {
	return "inbox:" + userID
}

func (r *RedisInbox) Add(ctx context.Context, n models.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	added, err := r.Client.HSetNX(ctx, inboxKey(n.UserID), n.ID, b).Result()
	if err != nil || !added {
		return err
	}
	return r.trim(ctx, n.UserID)
}

func (r *RedisInbox) List(ctx context.Context, userID string) ([]models.Notification, error) {
	raw, err := r.Client.HGetAll(ctx, inboxKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	out := make([]models.Notification, 0, len(raw))
	for _, v := range raw {
		var n models.Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RedisInbox) MarkRead(ctx context.Context, userID, id string) error {
	key := inboxKey(userID)
	v, err := r.Client.HGet(ctx, key, id).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	var n models.Notification
	if err := json.Unmarshal([]byte(v), &n); err != nil {
		return err
	}
	n.Read = true
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.Client.HSet(ctx, key, id, b).Err()
}

func (r *RedisInbox) trim(ctx context.Context, userID string) error {
	list, err := r.List(ctx, userID)
	if err != nil || len(list) <= inboxLimit {
		return err
	}
	stale := make([]string, 0, len(list)-inboxLimit)
	for _, n := range list[inboxLimit:] {
		stale = append(stale, n.ID)
	}
	return r.Client.HDel(ctx, inboxKey(userID), stale...).Err()
}

// MemoryInbox is the process-local InboxStore.
type MemoryInbox struct {
	mu      sync.Mutex
	entries map[string][]models.Notification
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{entries: make(map[string][]models.Notification)}
}

func (m *MemoryInbox) Add(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries[n.UserID] {
		if existing.ID == n.ID {
			return nil
		}
	}
	list := append(m.entries[n.UserID], n)
	sortNewestFirst(list)
	if len(list) > inboxLimit {
		list = list[:inboxLimit]
	}
	m.entries[n.UserID] = list
	return nil
}

func (m *MemoryInbox) List(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, len(m.entries[userID]))
	copy(out, m.entries[userID])
	return out, nil
}

func (m *MemoryInbox) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.entries[userID] {
		if n.ID == id {
			m.entries[userID][i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}
