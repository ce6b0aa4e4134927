// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"context"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/loop"
)

// Run feeds wall-clock time into c until ctx is done or the match is over.
// exec runs each Advance call; pass the session loop's Post to keep all
// controller calls on one goroutine, or nil to call directly.
func Run(ctx context.Context, c *Controller, ticks loop.TickerCreator, interval time.Duration, exec func(func())) {
	if exec == nil {
		exec = func(fn func()) { fn() }
	}

	ended := make(chan struct{})
	unsubscribe := c.OnEnd(func(Result) { close(ended) })
	defer unsubscribe()

	ch, stop := ticks.Create(interval)
	defer stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ended:
			return
		case t := <-ch:
			dt := interval
			if !last.IsZero() {
				dt = t.Sub(last)
			}
			last = t
			exec(func() { c.Advance(dt) })
			if c.Stopped() {
				return
			}
		}
	}
}
