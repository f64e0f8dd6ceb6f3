package notification

import "context"

// Service serves the notification inbox of one account.
type Service interface {
	List(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) (NotificationListResponse, error)
	MarkAsRead(ctx context.Context, recipientID string, ids []string) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}
