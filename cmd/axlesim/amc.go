package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/codyd51/axle-sub001/kernel/abi"
	"github.com/codyd51/axle-sub001/kernel/amc"
	"github.com/codyd51/axle-sub001/kernel/core"
	"github.com/codyd51/axle-sub001/kernel/sched"
	"github.com/spf13/cobra"
)

var (
	amcMaxYields int

	errWouldBlock = errors.New("no matching message after yielding")
)

func init() {
	cmd := newAmcCmd()
	cmd.Flags().IntVar(&amcMaxYields, "max-yields", 0, "Number of times await may yield before giving up")
	rootCmd.AddCommand(cmd)
}

func newAmcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amc <script>",
		Short: "Run a scripted message exchange on the message bus",
		Long: `The amc command replays a script of message bus operations, one per
line. Use "-" to read the script from stdin. Blank lines and lines starting
with '#' are ignored.

Commands:
  send <source> <dest> [event [payload]]   queue a message for dest
  select <service> [from=a,b] [event=N]    receive the oldest matching message
  await <service> [from=a,b] [event=N]     like select, yielding while empty
  peek <service> [from=a,b] [event=N]      report whether a message matches
  has <service> <source>                   report whether source sent a message
  len <service>                            print the inbox length
  services                                 list known services

Example:
  axlesim amc exchange.amc
  echo "send kb awm 1 a" | axlesim amc -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAmc(args)
		},
	}
	return cmd
}

// AmcStep is the outcome of a single script line.
type AmcStep struct {
	Line    int    `json:"line"`
	Command string `json:"command"`
	Result  string `json:"result"`
}

func runAmc(args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	steps, err := runAmcScript(&core.Core{Bus: amc.NewBus()}, r)
	if jsonOut {
		if jsonErr := printJSON(steps); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	for _, step := range steps {
		printInfo("%s\n", step.Result)
	}
	return err
}

// runAmcScript executes every line of the script read from r against c. It
// stops at the first line that fails and returns the steps run so far.
func runAmcScript(c *core.Core, r io.Reader) ([]AmcStep, error) {
	var (
		steps   []AmcStep
		scanner = bufio.NewScanner(r)
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		result, err := runAmcLine(c, line)
		if err != nil {
			return steps, fmt.Errorf("line %d: %w", lineNo, err)
		}
		printVerbose("%d: %s\n", lineNo, line)
		steps = append(steps, AmcStep{Line: lineNo, Command: line, Result: result})
	}

	if err := scanner.Err(); err != nil {
		return steps, fmt.Errorf("failed to read script: %w", err)
	}
	return steps, nil
}

func runAmcLine(c *core.Core, line string) (string, error) {
	fields := strings.Fields(line)

	switch cmd := fields[0]; cmd {
	case "send":
		return amcSend(c, line, fields)
	case "select", "await", "peek":
		if len(fields) < 2 {
			return "", fmt.Errorf("usage: %s <service> [from=a,b] [event=N]", cmd)
		}
		filter, err := parseFilter(fields[2:])
		if err != nil {
			return "", err
		}
		return amcReceive(c, cmd, fields[1], filter)
	case "has":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: has <service> <source>")
		}
		has, kerr := abi.AmcHasMessageFrom(c, abi.EncodeName(fields[1]), abi.EncodeName(fields[2]))
		if kerr != nil {
			return "", kerr
		}
		return fmt.Sprintf("%s has message from %s: %t", fields[1], fields[2], has), nil
	case "len":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: len <service>")
		}
		n, kerr := abi.AmcInboxLength(c, abi.EncodeName(fields[1]))
		if kerr != nil {
			return "", kerr
		}
		return fmt.Sprintf("%s inbox length: %d", fields[1], n), nil
	case "services":
		return "services: " + strings.Join(c.Bus.Registry().Services(), " "), nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}

func amcSend(c *core.Core, line string, fields []string) (string, error) {
	if len(fields) < 3 {
		return "", fmt.Errorf("usage: send <source> <dest> [event [payload]]")
	}
	source, dest := fields[1], fields[2]

	var body []byte
	if len(fields) > 3 {
		event, err := strconv.ParseUint(fields[3], 0, 32)
		if err != nil {
			return "", fmt.Errorf("invalid event %q: %w", fields[3], err)
		}
		body = make([]byte, amc.EventTagSize)
		binary.LittleEndian.PutUint32(body, uint32(event))

		// The payload is the rest of the line, inner spaces included
		rest := line
		for _, field := range fields[:4] {
			rest = strings.TrimLeft(rest, " \t")[len(field):]
		}
		body = append(body, strings.TrimSpace(rest)...)
	}

	msg, kerr := abi.EncodeMessage(source, dest, body)
	if kerr != nil {
		return "", kerr
	}
	if kerr = abi.AmcAppendMessage(c, abi.EncodeName(dest), msg); kerr != nil {
		return "", kerr
	}
	return fmt.Sprintf("%s -> %s: queued %d bytes", source, dest, len(body)), nil
}

// scriptFilter is a parsed "from=... event=..." clause.
type scriptFilter struct {
	sources []string
	event   *uint32
}

func parseFilter(args []string) (scriptFilter, error) {
	var f scriptFilter
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return f, fmt.Errorf("invalid filter clause %q", arg)
		}

		switch key {
		case "from":
			f.sources = strings.Split(value, ",")
		case "event":
			event, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return f, fmt.Errorf("invalid event %q: %w", value, err)
			}
			ev := uint32(event)
			f.event = &ev
		default:
			return f, fmt.Errorf("unknown filter key %q", key)
		}
	}
	return f, nil
}

func (f scriptFilter) busFilter() amc.Filter {
	filter := amc.FromSources(f.sources...)
	if f.event != nil {
		filter = filter.WithEvent(*f.event)
	}
	return filter
}

func amcReceive(c *core.Core, cmd, service string, f scriptFilter) (string, error) {
	switch cmd {
	case "peek":
		found := c.Bus.Peek(service, f.busFilter())
		return fmt.Sprintf("%s has matching message: %t", service, found), nil
	case "await":
		// A script is the only task in the system, so the yielder gives up
		// once the configured number of yields has been spent.
		var yields int
		y := sched.YieldFunc(func(context.Context) error {
			if yields >= amcMaxYields {
				return errWouldBlock
			}
			yields++
			return nil
		})

		msg, err := sched.AwaitMessage(context.Background(), c.Bus, service, f.busFilter(), y)
		if err != nil {
			return "", fmt.Errorf("await on %s: %w", service, err)
		}
		return describeMessage(service, msg), nil
	}

	sources := make([][]byte, len(f.sources))
	for i, src := range f.sources {
		sources[i] = abi.EncodeName(src)
	}

	msg, kerr := abi.AmcSelectMessage(c, abi.EncodeName(service), sources, f.event)
	if kerr != nil {
		return "", kerr
	}
	if msg == nil {
		return fmt.Sprintf("%s <- (none)", service), nil
	}
	return describeMessage(service, msg), nil
}

func describeMessage(service string, msg *amc.Message) string {
	event, tagged := msg.Event()
	if !tagged {
		return fmt.Sprintf("%s <- %s: %d untagged bytes", service, msg.Source(), len(msg.Body()))
	}
	return fmt.Sprintf("%s <- %s: event %d %q", service, msg.Source(), event, msg.Payload())
}
