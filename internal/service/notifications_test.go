package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

type fakeNotificationStore struct {
	rows   map[int64]*models.Notification
	nextID int64
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.nextID++
	n.ID = s.nextID
	s.rows[n.ID] = n
	return nil
}

func (s *fakeNotificationStore) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	return s.rows[id], nil
}

// FetchBatch mirrors the repository's selection: the eligibility predicate
// and delivery order come from the same model helpers the SQL encodes.
func (s *fakeNotificationStore) FetchBatch(ctx context.Context, maxCount int) ([]models.Notification, error) {
	now := time.Now()
	var eligible []*models.Notification
	for _, n := range s.rows {
		if n.EmailDeliverable(now) {
			eligible = append(eligible, n)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return models.EmailDeliveryBefore(eligible[i], eligible[j])
	})
	if len(eligible) > maxCount {
		eligible = eligible[:maxCount]
	}
	out := make([]models.Notification, 0, len(eligible))
	for _, n := range eligible {
		out = append(out, *n)
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkSent(ctx context.Context, id int64) error {
	s.rows[id].EmailSent = true
	return nil
}

func (s *fakeNotificationStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	n := s.rows[id]
	n.EmailRetryCount++
	n.EmailError = &errMsg
	if n.EmailRetryCount >= n.MaxEmailRetries {
		n.EmailSent = true
	}
	return nil
}

func (s *fakeNotificationStore) MarkUndeliverable(ctx context.Context, id int64, errMsg string) error {
	n := s.rows[id]
	n.EmailSent = true
	n.EmailError = &errMsg
	n.EmailRetryCount = n.MaxEmailRetries
	return nil
}

func (s *fakeNotificationStore) MarkForRetry(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	n := s.rows[id]
	n.EmailRetryCount++
	n.EmailError = &errMsg
	n.NextEmailRetryAt = &nextRetryAt
	return nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID == userID && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

type recordingChannel struct {
	topics []string
	events []string
}

func (c *recordingChannel) Publish(topic, event string, payload any) {
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
}

func newNotificationFixture() (*NotificationService, *fakeNotificationStore, *recordingChannel) {
	store := &fakeNotificationStore{rows: map[int64]*models.Notification{}}
	channel := &recordingChannel{}
	svc := NewNotificationService(store, channel)
	return svc, store, channel
}

func TestEnqueueAppliesTypeMetadata(t *testing.T) {
	svc, store, channel := newNotificationFixture()

	id, err := svc.Enqueue(context.Background(), 100, models.NotifBookingConfirmed, "Booking confirmed", "Your reservation is confirmed")
	require.NoError(t, err)

	n := store.rows[id]
	require.NotNil(t, n)
	assert.Equal(t, models.PriorityHigh, n.Priority)
	assert.Equal(t, 3, n.MaxEmailRetries)
	assert.False(t, n.EmailSent)

	require.Len(t, channel.topics, 1)
	assert.Equal(t, "user_100", channel.topics[0])
	assert.Equal(t, "ReceiveNotification", channel.events[0])
}

func TestEnqueueUrgentType(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	id, err := svc.Enqueue(context.Background(), 100, models.NotifAccountSuspended, "Account suspended", "Contact support")
	require.NoError(t, err)

	n := store.rows[id]
	assert.Equal(t, models.PriorityUrgent, n.Priority)
	assert.Equal(t, 5, n.MaxEmailRetries)
}

func TestEnqueueUnknownType(t *testing.T) {
	svc, store, channel := newNotificationFixture()

	_, err := svc.Enqueue(context.Background(), 100, "password_changed", "t", "m")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Empty(t, store.rows)
	assert.Empty(t, channel.topics)
}

func TestFetchBatchRejectsNonPositiveSize(t *testing.T) {
	svc, _, _ := newNotificationFixture()

	_, err := svc.FetchBatch(context.Background(), 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func queuedAt(id int64, priority int, age time.Duration) *models.Notification {
	return &models.Notification{
		ID:              id,
		UserID:          100,
		Type:            models.NotifBookingConfirmed,
		Priority:        priority,
		MaxEmailRetries: 3,
		CreatedAt:       time.Now().Add(-age),
	}
}

func TestFetchBatchOrdersByPriorityThenAge(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	store.rows[1] = queuedAt(1, models.PriorityLow, 4*time.Hour)
	store.rows[2] = queuedAt(2, models.PriorityHigh, 1*time.Hour)
	store.rows[3] = queuedAt(3, models.PriorityUrgent, 10*time.Minute)
	store.rows[4] = queuedAt(4, models.PriorityHigh, 3*time.Hour)

	batch, err := svc.FetchBatch(context.Background(), 10)
	require.NoError(t, err)

	ids := make([]int64, len(batch))
	for i, n := range batch {
		ids[i] = n.ID
	}
	// Urgent first, then the older of the two high-priority rows
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)

	// The limit trims from the tail, never from the front of the queue
	short, err := svc.FetchBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, short, 2)
	assert.Equal(t, int64(3), short[0].ID)
	assert.Equal(t, int64(4), short[1].ID)
}

func TestFetchBatchSkipsIneligibleRows(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	store.rows[1] = queuedAt(1, models.PriorityNormal, time.Hour)

	scheduled := queuedAt(2, models.PriorityUrgent, time.Hour)
	future := time.Now().Add(30 * time.Minute)
	scheduled.NextEmailRetryAt = &future
	store.rows[2] = scheduled

	exhausted := queuedAt(3, models.PriorityUrgent, time.Hour)
	exhausted.EmailRetryCount = exhausted.MaxEmailRetries
	store.rows[3] = exhausted

	delivered := queuedAt(4, models.PriorityUrgent, time.Hour)
	delivered.EmailSent = true
	store.rows[4] = delivered

	elapsed := queuedAt(5, models.PriorityLow, 2*time.Hour)
	past := time.Now().Add(-time.Minute)
	elapsed.NextEmailRetryAt = &past
	elapsed.EmailRetryCount = 1
	store.rows[5] = elapsed

	batch, err := svc.FetchBatch(context.Background(), 10)
	require.NoError(t, err)

	// Only the fresh row and the one whose backoff has elapsed come back
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1), batch[0].ID)
	assert.Equal(t, int64(5), batch[1].ID)
}

func TestMarkUndeliverableRetiresImmediately(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	id, err := svc.Enqueue(context.Background(), 100, models.NotifBookingConfirmed, "t", "m")
	require.NoError(t, err)

	require.NoError(t, svc.MarkUndeliverable(context.Background(), id, "user 100 has no email address"))

	n := store.rows[id]
	assert.True(t, n.EmailSent)
	assert.Equal(t, n.MaxEmailRetries, n.EmailRetryCount)

	batch, err := svc.FetchBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestMarkForRetrySchedulesBackoff(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	id, err := svc.Enqueue(context.Background(), 100, models.NotifBookingConfirmed, "t", "m")
	require.NoError(t, err)
	store.rows[id].EmailRetryCount = 2

	before := time.Now()
	require.NoError(t, svc.MarkForRetry(context.Background(), id, "smtp timeout"))

	n := store.rows[id]
	require.NotNil(t, n.NextEmailRetryAt)
	// Third attempt waits 2^2 = 4 minutes
	assert.WithinDuration(t, before.Add(4*time.Minute), *n.NextEmailRetryAt, 5*time.Second)
	assert.Equal(t, 3, n.EmailRetryCount)
}

func TestMarkForRetryUnknownNotification(t *testing.T) {
	svc, _, _ := newNotificationFixture()

	err := svc.MarkForRetry(context.Background(), 99, "smtp timeout")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Minute, RetryBackoff(0))
	assert.Equal(t, 2*time.Minute, RetryBackoff(1))
	assert.Equal(t, 4*time.Minute, RetryBackoff(2))
	assert.Equal(t, 32*time.Minute, RetryBackoff(5))

	// Capped so a raised retry limit can't schedule deliveries years out
	assert.Equal(t, 1024*time.Minute, RetryBackoff(10))
	assert.Equal(t, 1024*time.Minute, RetryBackoff(40))
}
