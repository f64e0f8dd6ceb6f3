package notification

import (
	"context"
	"fmt"

	"github.com/paycrow/paycrow-backend-go/internal/domain/notification"
)

type service struct {
	repo notification.Repository
}

func NewNotificationService(repo notification.Repository) notification.Service {
	return &service{repo: repo}
}

// List implements notification.Service.
func (s *service) List(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) (notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := s.repo.GetByRecipient(ctx, recipientID, page, pageSize, unreadOnly)
	if err != nil {
		return notification.NotificationListResponse{}, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.repo.GetUnreadCount(ctx, recipientID)
	if err != nil {
		return notification.NotificationListResponse{}, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	responses := make([]notification.NotificationResponse, len(items))
	for i, n := range items {
		responses[i] = notification.ToResponse(n)
	}

	return notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// MarkAsRead implements notification.Service.
func (s *service) MarkAsRead(ctx context.Context, recipientID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkAsRead(ctx, ids, recipientID)
}

// MarkAllAsRead implements notification.Service.
func (s *service) MarkAllAsRead(ctx context.Context, recipientID string) error {
	return s.repo.MarkAllAsRead(ctx, recipientID)
}

// UnreadCount implements notification.Service.
func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, recipientID)
}
