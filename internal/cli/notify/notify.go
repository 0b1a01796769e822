// Package notify is the user feedback side channel. Messages are fire and
// forget: a Notifier never fails and never blocks the flow that raised it.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/manifoldco/promptui"
)

// Notifier shows short success and error messages to the user
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Nop discards every message
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// Console prints messages as single lines, colored when Color is set
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// NewConsole writes to out
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

func (c *Console) Success(msg string) {
	c.print("✓", msg, promptui.Styler(promptui.FGGreen))
}

func (c *Console) Error(msg string) {
	c.print("✗", msg, promptui.Styler(promptui.FGRed))
}

func (c *Console) print(icon, msg string, style func(interface{}) string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.color {
		icon = style(icon)
	}
	fmt.Fprintf(c.out, "%s %s\n", icon, msg)
}
