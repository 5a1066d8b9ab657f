package notifier

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"supertrader/internal/pkg/text"

	"github.com/tidwall/gjson"
)

const (
	slackPostMessageURL = "https://slack.com/api/chat.postMessage"
	slackMaxRunes       = 40000
)

// Slack posts to chat.postMessage with a bot token. There is no retry: a
// failed post is reported once to the caller.
type Slack struct {
	Token   string
	Channel string
	APIURL  string
	Client  *http.Client
}

func NewSlack(token, channel string) *Slack {
	return &Slack{
		Token:   token,
		Channel: channel,
		APIURL:  slackPostMessageURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Slack) SendText(msg string) error {
	if s.Token == "" || s.Channel == "" {
		return fmt.Errorf("slack config incomplete")
	}
	endpoint := s.APIURL
	if endpoint == "" {
		endpoint = slackPostMessageURL
	}
	form := url.Values{}
	form.Set("channel", s.Channel)
	form.Set("text", text.Truncate(msg, slackMaxRunes))
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack status=%d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("slack returned a non-JSON body")
	}
	if !gjson.GetBytes(body, "ok").Bool() {
		return fmt.Errorf("slack api error: %s", gjson.GetBytes(body, "error").String())
	}
	return nil
}
