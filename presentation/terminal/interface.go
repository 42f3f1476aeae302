package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TerminalInterface is an interactive console that dispatches typed commands
// locally, without a controller attached
type TerminalInterface struct {
	dispatcher interfaces.Dispatcher
	policy     interfaces.CommandPolicy
	logger     *logrus.Logger
	reader     *bufio.Reader
	out        io.Writer
}

func NewTerminalInterface(dispatcher interfaces.Dispatcher, policy interfaces.CommandPolicy, logger *logrus.Logger, in io.Reader, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		dispatcher: dispatcher,
		policy:     policy,
		logger:     logger,
		reader:     bufio.NewReader(in),
		out:        out,
	}
}

// ParseCommand turns `command [params-json]` into a request
func ParseCommand(line string) (entities.Request, error) {
	line = strings.TrimSpace(line)
	name, params, _ := strings.Cut(line, " ")
	if name == "" {
		return entities.Request{}, errors.New("empty command")
	}

	req := entities.Request{ID: uuid.NewString(), Command: entities.CommandName(name)}
	params = strings.TrimSpace(params)
	if params != "" {
		if !json.Valid([]byte(params)) {
			return entities.Request{}, fmt.Errorf("params for %s are not valid JSON", name)
		}
		req.Params = json.RawMessage(params)
	}
	return req, nil
}

func (t *TerminalInterface) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "noet console")
	fmt.Fprintln(t.out, "============")
	fmt.Fprintln(t.out, "Type a command with optional JSON params, 'help' for the list, or 'quit' to exit")
	fmt.Fprintln(t.out)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch input {
		case "quit", "exit", "q":
			fmt.Fprintln(t.out, "Bye!")
			return nil
		case "help":
			t.help()
			continue
		}

		req, err := ParseCommand(input)
		if err != nil {
			fmt.Fprintf(t.out, "\n%v\n\n", err)
			continue
		}

		if t.policy.IsDestructive(req) && !t.confirm(req) {
			fmt.Fprintf(t.out, "\nCancelled\n\n")
			continue
		}

		resp := t.dispatcher.Dispatch(ctx, req)
		if err := t.print(resp); err != nil {
			return err
		}
	}
}

// confirm asks before commands that publish, change or delete content
func (t *TerminalInterface) confirm(req entities.Request) bool {
	fmt.Fprintf(t.out, "%s changes published content (risk: %s). Proceed? [y/N] ", req.Command, t.policy.RiskLevel(req))
	answer, err := t.reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (t *TerminalInterface) print(resp entities.Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintf(t.out, "\n%s\n\n", data)
	return nil
}

func (t *TerminalInterface) help() {
	fmt.Fprintln(t.out, `
Commands:
  ping
  check_auth
  list_articles {"page": 2}
  get_article {"username": "...", "key": "n..."}
  create_article {"title": "...", "body": "...", "draft": true}
  update_article {"key": "n...", "title": "...", "body": "..."}
  delete_article {"key": "n..."}
  set_debug_mode {"enabled": true}
  get_debug_mode`)
	fmt.Fprintln(t.out)
}
