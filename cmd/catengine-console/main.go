// Command catengine-console is an interactive operator console attached
// to a running engine, grounded on the teacher's readline-based REPL
// debugger idiom (prompt/completer/command-switch loop).
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/ormasoftchile/catengine/pkg/engine"
)

func main() {
	slotCount := 1
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n > 0 {
			slotCount = n
		}
	}

	eng, err := engine.New(slotCount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer eng.Close()

	eng.RegisterLogCallback(func(ts int64, level, source, message string) {
		fmt.Printf("[%s] %s: %s\n", level, source, message)
	})

	console := &console{eng: eng, output: os.Stdout}
	if err := console.run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type console struct {
	eng    *engine.Engine
	output io.Writer
}

func (c *console) run() error {
	commands := []string{"status", "pause", "resume", "stop", "next", "skip", "sn", "help", "quit"}
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "catengine> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(c.output, "catengine console — %d slots\n", c.eng.GetSlotCount())
	fmt.Fprintf(c.output, "Type 'help' for available commands.\n\n")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "status":
			c.handleStatus(args)
		case "pause":
			c.handleSignal(args, c.eng.PauseSlot)
		case "resume":
			c.handleSignal(args, c.eng.ResumeSlot)
		case "stop":
			c.handleSignal(args, c.eng.StopSlot)
		case "next":
			c.handleSignal(args, c.eng.StepNext)
		case "skip":
			c.handleSignal(args, c.eng.SkipCurrentStep)
		case "sn":
			c.handleSN(args)
		case "help", "?":
			c.handleHelp()
		case "quit", "q":
			fmt.Fprintln(c.output, "Exiting console.")
			return nil
		default:
			fmt.Fprintf(c.output, "Unknown command: %q. Type 'help' for available commands.\n", cmd)
		}
	}
}

func (c *console) parseSlotID(args []string) (uint32, bool) {
	if len(args) == 0 {
		fmt.Fprintln(c.output, "usage: <command> <slot_id>")
		return 0, false
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(c.output, "invalid slot id: %q\n", args[0])
		return 0, false
	}
	return uint32(n), true
}

func (c *console) handleStatus(args []string) {
	slotID, ok := c.parseSlotID(args)
	if !ok {
		return
	}
	out, err := c.eng.GetSlotStatusJSON(slotID)
	if err != nil {
		fmt.Fprintf(c.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.output, string(out))
}

func (c *console) handleSignal(args []string, fn func(uint32) error) {
	slotID, ok := c.parseSlotID(args)
	if !ok {
		return
	}
	if err := fn(slotID); err != nil {
		fmt.Fprintf(c.output, "Error: %v\n", err)
	}
}

func (c *console) handleSN(args []string) {
	slotID, ok := c.parseSlotID(args)
	if !ok {
		return
	}
	if len(args) < 2 {
		sn, err := c.eng.GetSlotSN(slotID)
		if err != nil {
			fmt.Fprintf(c.output, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(c.output, sn)
		return
	}
	if err := c.eng.SetSlotSN(slotID, args[1]); err != nil {
		fmt.Fprintf(c.output, "Error: %v\n", err)
	}
}

func (c *console) handleHelp() {
	fmt.Fprintln(c.output, `Commands:
  status <slot_id>       show slot status as JSON
  pause <slot_id>        send a pause signal
  resume <slot_id>       send a resume signal
  stop <slot_id>         send a stop signal
  next <slot_id>         send a step-next signal (ignored by the executor)
  skip <slot_id>         send a skip-current-step signal
  sn <slot_id> [value]   get or set the slot's serial number
  help                   show this message
  quit                   exit the console`)
}
