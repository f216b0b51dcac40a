// Package relay turns a provider's streaming loop into a fragment channel.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Emit sends one piece of text downstream. It returns false once the
// consumer has gone away, after which the producer should stop.
type Emit func(text string) bool

// Stream runs produce in its own goroutine and returns the channel it
// feeds. The channel is closed when produce returns. A non-nil error from
// produce is delivered as a final fragment wrapping
// domain.ErrGenerationFailed, unless ctx was cancelled first.
func Stream(ctx context.Context, produce func(emit Emit) error) <-chan domain.Fragment {
	out := make(chan domain.Fragment)

	emit := func(text string) bool {
		if text == "" {
			return ctx.Err() == nil
		}
		select {
		case out <- domain.Fragment{Text: text}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		err := produce(emit)
		if err == nil || ctx.Err() != nil {
			return
		}
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		select {
		case out <- domain.Fragment{Err: err}:
		case <-ctx.Done():
		}
	}()

	return out
}
