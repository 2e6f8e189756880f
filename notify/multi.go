package notify

import (
	"context"
	"errors"

	"modlog-bot/model"
)

// Multi fans an event out to every notifier. One failing target does not
// stop delivery to the rest.
type Multi []model.Notifier

func (m Multi) Notify(ctx context.Context, event model.CaseEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
