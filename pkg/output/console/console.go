package console

import (
	"context"
	"fmt"
	"time"

	"github.com/ericogr/co2-monitor/pkg/output"
)

// ConsoleOutput prints publications to stdout. It is always connected.
type ConsoleOutput struct {
	now func() time.Time
}

func NewConsole() output.Output { return &ConsoleOutput{now: time.Now} }

func (c *ConsoleOutput) Connected() bool                   { return true }
func (c *ConsoleOutput) Connect(ctx context.Context) error { return nil }

func (c *ConsoleOutput) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	fmt.Printf("%s topic=%s retained=%t payload=%s\n", c.now().Format(time.RFC3339), topic, retained, payload)
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
