package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const apiTimeout = 30 * time.Second

// GoogleClient reads the primary calendar through the Calendar API.
// Requires oauth_client.json and token.json to exist.
type GoogleClient struct {
	svc *gcal.Service
	now func() time.Time
}

func NewGoogleClient(ctx context.Context, oauthClientPath, tokenPath string) (*GoogleClient, error) {
	clientJSON, err := os.ReadFile(oauthClientPath)
	if err != nil {
		return nil, fmt.Errorf("read oauth client config: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth client config: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	// Token source auto-refreshes with the stored refresh token.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleClient{svc: svc, now: time.Now}, nil
}

func (c *GoogleClient) UpcomingEvents(ctx context.Context, windowDays, maxResults int) ([]Event, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	now := c.now()
	items, err := c.svc.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.AddDate(0, 0, windowDays).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	out := make([]Event, 0, len(items.Items))
	for _, item := range items.Items {
		ev := Event{
			Summary: item.Summary,
			ColorID: item.ColorId,
			Status:  item.Status,
		}
		if item.Start != nil {
			ev.StartDate = item.Start.Date
			if item.Start.DateTime != "" {
				if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
					ev.StartDateTime = t
				}
			}
		}
		for _, at := range item.Attendees {
			if at != nil && at.ResponseStatus == "accepted" {
				ev.AttendeeAccepted = true
				break
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
