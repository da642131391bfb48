package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jpalmerr/pickstore/internal/docstate"
	"github.com/jpalmerr/pickstore/internal/host"
)

// sender is the part of the store the writers use.
type sender interface {
	Send(op docstate.Op) error
}

// RunWriters dispatches a tick every second and occasionally moves a
// service to a new status, until ctx is cancelled. All dispatches go
// through loop, which owns the store.
func RunWriters(ctx context.Context, loop *host.Loop, st sender) {
	services := []string{"users", "orders", "billing"}
	statuses := []string{"ok", "degraded", "down"}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ops := []docstate.Op{{Op: docstate.OpIncr, Path: "ticks"}}
		// roughly one status change every five seconds
		if rand.Intn(5) == 0 {
			svc := services[rand.Intn(len(services))]
			ops = append(ops, docstate.Op{
				Op:    docstate.OpSet,
				Path:  "services." + svc,
				Value: statuses[rand.Intn(len(statuses))],
			})
		}

		err := loop.Do(ctx, func() {
			for _, op := range ops {
				if err := st.Send(op); err != nil {
					slog.Warn("demo dispatch failed", "op", op.String(), "error", err)
				}
			}
		})
		if err != nil {
			return
		}
	}
}
