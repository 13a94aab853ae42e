package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestRemoteTimeout_CappedByParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithRemoteTimeout(parent, time.Minute)
	defer cancel2()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("ожидали дедлайн")
	}
	if time.Until(dl) > 50*time.Millisecond {
		t.Fatalf("дедлайн не ограничен родителем: %v", time.Until(dl))
	}
}

func TestOpAndTrigger(t *testing.T) {
	ctx := WithOp(context.Background(), "drain")
	if op, ok := Op(ctx); !ok || op != "drain" {
		t.Fatalf("op=%q ok=%v", op, ok)
	}
	if Trigger(ctx) != "manual" {
		t.Fatal("по умолчанию trigger=manual")
	}
	if Trigger(WithTrigger(ctx, "reconnect")) != "reconnect" {
		t.Fatal("trigger не прокинут")
	}
}
