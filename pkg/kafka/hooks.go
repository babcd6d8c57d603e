package kafka

import (
    "context"
    "fmt"

    "github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. BeforeHandle may rewrite the
// context, message, or payload; returning an error skips the handler and
// routes the message through error processing.
type ConsumerHook interface {
    BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
    AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
    OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is the default hook.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

// HookError classifies an error produced by a hook.
type HookError struct {
    Code string
    Err  error
}

func (e *HookError) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %v", e.Code, e.Err)
    }
    return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// ErrorLoggingHook reports handler failures through the provided function.
// It never panics into the consumer loop.
type ErrorLoggingHook struct {
    Logf func(topic string, partition int, offset int64, err error)
}

func (h ErrorLoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (h ErrorLoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (h ErrorLoggingHook) OnError(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
    if h.Logf == nil {
        return
    }
    defer func() { _ = recover() }()
    h.Logf(topic, km.Partition, km.Offset, err)
}
