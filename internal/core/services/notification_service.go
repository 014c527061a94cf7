package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationEvent is the payload pushed to SSE subscribers
type NotificationEvent struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService persists notifications and fans them out to live
// SSE subscribers. Delivery is best effort; a failed write or a slow
// subscriber never propagates an error to the caller.
type NotificationService struct {
	notificationRepo *repositories.NotificationRepository

	mu          sync.RWMutex
	subscribers map[uint]map[chan []byte]struct{}
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo *repositories.NotificationRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		subscribers:      map[uint]map[chan []byte]struct{}{},
	}
}

// Notify stores a notification and pushes it to the user's open streams
func (s *NotificationService) Notify(userID uint, title, body string) {
	notification := &models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("⚠️ Failed to store notification for user %d: %v", userID, err)
		return
	}

	payload, err := json.Marshal(NotificationEvent{
		ID:        notification.ID,
		Title:     title,
		Body:      body,
		CreatedAt: notification.CreatedAt,
	})
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers[userID] {
		select {
		case ch <- payload:
		default:
			// subscriber is not draining, skip it
		}
	}
}

// Subscribe opens an SSE stream for a user. The returned cancel func
// must be called when the connection closes.
func (s *NotificationService) Subscribe(userID uint) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	s.mu.Lock()
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = map[chan []byte]struct{}{}
	}
	s.subscribers[userID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subscribers[userID], ch)
		if len(s.subscribers[userID]) == 0 {
			delete(s.subscribers, userID)
		}
		s.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// SubscriberCount reports how many streams a user has open
func (s *NotificationService) SubscriberCount(userID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[userID])
}

// GetMine returns a user's notifications, newest first
func (s *NotificationService) GetMine(ctx context.Context, userID uint, offset, limit int) ([]models.Notification, int64, error) {
	return s.notificationRepo.GetByUser(ctx, userID, offset, limit)
}

// CountUnread returns the unread badge count
func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkRead marks a single owned notification as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	err := s.notificationRepo.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead marks every notification of a user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
