package notifier

// TextNotifier is an external chat sink. It is intentionally small so the
// trader can depend on it without importing Slack or Telegram.
type TextNotifier interface {
	SendText(text string) error
}
