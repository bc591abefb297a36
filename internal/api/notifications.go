package api

import (
	"context"
	"net/http"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// NotificationsService covers /notifications.
type NotificationsService struct {
	caller Caller
}

// List returns notifications, newest first. Non-positive limit selects 50.
func (s *NotificationsService) List(ctx context.Context, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	q := pageQuery(limit, offset, DefaultNotificationLimit)
	if unreadOnly {
		q.Set("unreadOnly", "true")
	}

	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := get(ctx, s.caller, withQuery("/notifications", q), &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (s *NotificationsService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	var resp struct {
		Notification *models.Notification `json:"notification"`
	}
	if err := send(ctx, s.caller, http.MethodPatch, "/notifications/"+escape(id)+"/read", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notification, nil
}

func (s *NotificationsService) MarkAllRead(ctx context.Context) (string, error) {
	var resp models.MessageResponse
	if err := send(ctx, s.caller, http.MethodPatch, "/notifications/read-all", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
