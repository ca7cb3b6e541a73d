package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/weighing"

	"github.com/go-resty/resty/v2"
)

// WebhookClient posts daily closings to a JSON webhook (Slack-style "text" plus the raw report).
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

func NewWebhookClient(url, token string) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if token != "" {
		restyClient.SetAuthToken(token)
	}

	return &WebhookClient{httpClient: restyClient, url: url}
}

type DailyReportMessage struct {
	Text   string             `json:"text"`
	Report models.DailyReport `json:"report"`
}

// Summary renders the one-line text of a closing.
func Summary(r models.DailyReport) string {
	return fmt.Sprintf("Weighbridge %s: %d weighings (%d pending), net %s, revenue %.2f, expenses %.2f, profit %.2f",
		r.Date, r.Weighings, r.Pending, weighing.ToMunds(r.NetWeightKg), r.Revenue, r.Expenses, r.NetProfit)
}

func (c *WebhookClient) NotifyDailyReport(ctx context.Context, report models.DailyReport) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(DailyReportMessage{Text: Summary(report), Report: report}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
