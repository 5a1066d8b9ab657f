package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"supertrader/internal/logger"
	"supertrader/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) SendText(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })
	return &buf
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func TestSlackSendText(t *testing.T) {
	var gotAuth, gotChannel, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotChannel = r.PostForm.Get("channel")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSlack("xoxb-token", "#bot")
	s.APIURL = srv.URL
	require.NoError(t, s.SendText("hello"))
	assert.Equal(t, "Bearer xoxb-token", gotAuth)
	assert.Equal(t, "#bot", gotChannel)
	assert.Equal(t, "hello", gotText)
}

func TestSlackAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	s := NewSlack("t", "#missing")
	s.APIURL = srv.URL
	err := s.SendText("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSendPrefixesTimestamp(t *testing.T) {
	captureLog(t)
	sink := new(MockSink)
	sink.On("SendText", "[2024-05-06 07:08:09] check_market_open...OK").Return(nil).Once()

	n := New(sink, WithClock(fixedNow))
	n.Send("check_market_open...OK", logger.LevelInfo, true)
	n.Send("local only", logger.LevelInfo, false)

	sink.AssertExpectations(t)
}

func TestSendSwallowsUnreachableEndpoint(t *testing.T) {
	buf := captureLog(t)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	s := NewSlack("t", "#c")
	s.APIURL = endpoint
	n := New(s, WithClock(fixedNow))

	assert.NotPanics(t, func() {
		n.Send("order placed", logger.LevelInfo, true)
	})
	out := buf.String()
	assert.Contains(t, out, "order placed")
	assert.Contains(t, out, "Slack message sending failed")
}

func TestSendSuspendsAfterRepeatedFailures(t *testing.T) {
	buf := captureLog(t)
	sink := new(MockSink)
	sink.On("SendText", mock.Anything).Return(errors.New("down")).Twice()

	cb := circuit.NewCircuitBreaker("test", 2, time.Hour)
	cb.SetStateChangeHandler(func(string, circuit.State, circuit.State) {})
	n := New(sink, WithBreaker(cb), WithClock(fixedNow))

	for i := 0; i < 4; i++ {
		n.Send("msg", logger.LevelWarning, true)
	}
	sink.AssertNumberOfCalls(t, "SendText", 2)
	assert.Contains(t, buf.String(), "suspended")
}

func TestSuspensionWindow(t *testing.T) {
	cases := map[string]struct {
		suspension time.Duration
		wantCalls  int
	}{
		"zero disables": {suspension: 0, wantCalls: 5},
		"configured":    {suspension: time.Hour, wantCalls: breakerThreshold},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			captureLog(t)
			sink := new(MockSink)
			sink.On("SendText", mock.Anything).Return(errors.New("down"))
			n := New(sink, WithSuspension(tc.suspension), WithClock(fixedNow))

			for i := 0; i < 5; i++ {
				n.Send("msg", logger.LevelWarning, true)
			}
			sink.AssertNumberOfCalls(t, "SendText", tc.wantCalls)
		})
	}
}

func TestTelegramSendTextTruncates(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botBOT/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("BOT", "42")
	tg.BaseURL = srv.URL
	require.NoError(t, tg.SendText(strings.Repeat("가", telegramMaxRunes+10)))
	assert.Equal(t, "42", got["chat_id"])
	text, _ := got["text"].(string)
	assert.Len(t, []rune(text), telegramMaxRunes)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := new(MockSink)
	ok.On("SendText", "x").Return(nil)
	bad := new(MockSink)
	bad.On("SendText", "x").Return(errors.New("nope"))

	err := Multi{ok, nil, bad}.SendText("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	ok.AssertExpectations(t)
}

func TestStructuredMessageRender(t *testing.T) {
	msg := StructuredMessage{
		Title: "Account",
		Sections: []MessageSection{
			{Title: "Totals", Lines: []string{"asset: 100", " "}},
			{Title: "Empty", Lines: nil},
			{Lines: []string{"A005930 x10"}},
		},
		Timestamp: fixedNow(),
	}
	want := "Account\nTotals\n- asset: 100\n\n- A005930 x10\nat 2024-05-06 07:08:09"
	assert.Equal(t, want, msg.Render())
}
