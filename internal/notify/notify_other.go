//go:build !linux

package notify

import "context"

func platformSend(ctx context.Context, summary, body string) error {
	return ErrUnsupported
}
