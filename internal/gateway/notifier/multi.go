package notifier

import "errors"

// Multi fans one message out to every sink and joins their failures.
type Multi []TextNotifier

func (m Multi) SendText(text string) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.SendText(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
