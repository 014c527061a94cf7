package services

import (
	"encoding/json"
	"testing"

	"mediconnect/internal/adapters/persistence/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationService(t *testing.T) (*NotificationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	return NewNotificationService(repositories.NewNotificationRepository(db)), mock
}

func TestNotify_PersistsAndFansOut(t *testing.T) {
	svc, mock := newNotificationService(t)

	ch, cancel := svc.Subscribe(7)
	defer cancel()

	mock.ExpectExec("INSERT INTO `notifications`").
		WillReturnResult(sqlmock.NewResult(11, 1))

	svc.Notify(7, "New appointment", "A consultation was booked")

	select {
	case payload := <-ch:
		var event NotificationEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, uint(11), event.ID)
		assert.Equal(t, "New appointment", event.Title)
		assert.Equal(t, "A consultation was booked", event.Body)
	default:
		t.Fatal("expected a payload on the subscriber channel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotify_SkipsOtherUsersStreams(t *testing.T) {
	svc, mock := newNotificationService(t)

	ch, cancel := svc.Subscribe(8)
	defer cancel()

	mock.ExpectExec("INSERT INTO `notifications`").
		WillReturnResult(sqlmock.NewResult(12, 1))

	svc.Notify(7, "New appointment", "not for user 8")

	select {
	case <-ch:
		t.Fatal("user 8 must not receive user 7's notification")
	default:
	}
}

func TestNotify_StorageFailureDoesNotPanic(t *testing.T) {
	svc, mock := newNotificationService(t)

	mock.ExpectExec("INSERT INTO `notifications`").
		WillReturnError(assert.AnError)

	// Delivery is best effort; the caller never sees the failure.
	svc.Notify(7, "New appointment", "storage is down")
}

func TestSubscribe_CancelRemovesStream(t *testing.T) {
	svc, _ := newNotificationService(t)

	_, cancelA := svc.Subscribe(7)
	_, cancelB := svc.Subscribe(7)
	assert.Equal(t, 2, svc.SubscriberCount(7))

	cancelA()
	assert.Equal(t, 1, svc.SubscriberCount(7))

	cancelB()
	assert.Equal(t, 0, svc.SubscriberCount(7))
}

func TestNotify_SlowSubscriberIsSkipped(t *testing.T) {
	svc, mock := newNotificationService(t)

	ch, cancel := svc.Subscribe(7)
	defer cancel()

	// Fill the buffered channel without draining it.
	for i := 0; i < cap(ch)+3; i++ {
		mock.ExpectExec("INSERT INTO `notifications`").
			WillReturnResult(sqlmock.NewResult(int64(20+i), 1))
		svc.Notify(7, "ping", "flood")
	}

	assert.Len(t, ch, cap(ch))
	assert.NoError(t, mock.ExpectationsWereMet())
}
