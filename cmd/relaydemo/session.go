package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/rickchristie/relay"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

var (
	errQuit           = errors.New("quit")
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
	errNoOpenRun      = errors.New("no open run")
)

const helpText = `Commands:
  chain start [name]     chain end [output]     chain error <message>
  call start <prompt>    token <text>           call end <text>     call error <message>
  tool start <input>     tool end <output>      tool error <message>
  action <tool> [input]  finish <answer>        text <text>
  verbose on|off         observers              mute <name>         unmute <name>
  status                 help                   quit
`

type openRun struct {
	family string
	run    relay.Run
}

// session turns typed commands into emits. Start commands open a run nested
// under the innermost open run; end and error commands close the innermost
// open run of the same family.
type session struct {
	stack   *stack
	out     io.Writer
	verbose bool
	runs    []openRun
}

func newSession(s *stack, out io.Writer, verbose bool) *session {
	return &session{stack: s, out: out, verbose: verbose}
}

func (s *session) open(family string) relay.Run {
	var parent relay.Run
	if len(s.runs) > 0 {
		parent = s.runs[len(s.runs)-1].run
	}
	run := relay.NewRun(parent.ID)
	s.runs = append(s.runs, openRun{family: family, run: run})
	return run
}

func (s *session) close(family string) (relay.Run, error) {
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].family == family {
			run := s.runs[i].run
			s.runs = slices.Delete(s.runs, i, i+1)
			return run, nil
		}
	}
	return relay.Run{}, fmt.Errorf("%w: %s", errNoOpenRun, family)
}

func (s *session) current() relay.Run {
	if len(s.runs) == 0 {
		return relay.Run{}
	}
	return s.runs[len(s.runs)-1].run
}

// exec runs one command line. It returns errQuit when the user asks to leave.
func (s *session) exec(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	emit := s.stack.registry

	switch verb {
	case "":
		return nil
	case "q", "quit", "exit":
		return errQuit
	case "help":
		_, err := io.WriteString(s.out, helpText)
		return err
	case "verbose":
		switch rest {
		case "on":
			s.verbose = true
		case "off":
			s.verbose = false
		default:
			return fmt.Errorf("%w: verbose on|off", errUsage)
		}
		return nil
	case "status":
		return s.status()
	case "observers":
		return s.listObservers()
	case "mute":
		return s.mute(rest)
	case "unmute":
		return s.unmute(rest)

	case "chain", "call", "tool":
		return s.lifecycle(ctx, verb, rest)

	case "token":
		return emit.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{
			Run:   s.current(),
			Token: rest,
			Chunk: []byte(rest),
		}, s.verbose)
	case "action":
		tool, input, _ := strings.Cut(rest, " ")
		if tool == "" {
			return fmt.Errorf("%w: action <tool> [input]", errUsage)
		}
		return emit.EmitAgentAction(ctx, &relay.AgentActionEvent{
			Run: s.current(),
			Action: schema.AgentAction{
				Tool:      tool,
				ToolInput: input,
				Log:       fmt.Sprintf("Action: %s\nAction Input: %s", tool, input),
			},
			Color: "green",
		}, s.verbose)
	case "finish":
		return emit.EmitAgentFinish(ctx, &relay.AgentFinishEvent{
			Run: s.current(),
			Finish: schema.AgentFinish{
				ReturnValues: map[string]any{"output": rest},
				Log:          "Final Answer: " + rest,
			},
			Color: "green",
		}, s.verbose)
	case "text":
		return emit.EmitText(ctx, &relay.TextEvent{Run: s.current(), Text: rest, Color: "blue", End: "\n"}, s.verbose)
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, verb)
}

func (s *session) lifecycle(ctx context.Context, family, line string) error {
	phase, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	emit := s.stack.registry

	switch family + " " + phase {
	case "chain start":
		serialized := map[string]any{}
		if arg != "" {
			serialized["name"] = arg
		}
		return emit.EmitChainStart(ctx, &relay.ChainStartEvent{Run: s.open(family), Serialized: serialized}, s.verbose)
	case "call start":
		return emit.EmitCallStart(ctx, &relay.CallStartEvent{
			Run:      s.open(family),
			Prompts:  []string{arg},
			Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, arg)},
		}, s.verbose)
	case "tool start":
		return emit.EmitToolStart(ctx, &relay.ToolStartEvent{Run: s.open(family), Input: arg, Color: "yellow"}, s.verbose)
	}

	if phase != "end" && phase != "error" {
		return fmt.Errorf("%w: %s start|end|error", errUsage, family)
	}
	if phase == "error" && arg == "" {
		return fmt.Errorf("%w: %s error <message>", errUsage, family)
	}
	run, err := s.close(family)
	if err != nil {
		return err
	}

	switch family + " " + phase {
	case "chain end":
		return emit.EmitChainEnd(ctx, &relay.ChainEndEvent{Run: run, Outputs: map[string]any{"output": arg}}, s.verbose)
	case "chain error":
		return emit.EmitChainError(ctx, &relay.ChainErrorEvent{Run: run, Err: errors.New(arg)}, s.verbose)
	case "call end":
		return emit.EmitCallEnd(ctx, &relay.CallEndEvent{
			Run:      run,
			Response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: arg}}},
		}, s.verbose)
	case "call error":
		return emit.EmitCallError(ctx, &relay.CallErrorEvent{Run: run, Err: errors.New(arg)}, s.verbose)
	case "tool end":
		return emit.EmitToolEnd(ctx, &relay.ToolEndEvent{
			Run:               run,
			Output:            arg,
			ObservationPrefix: "Observation: ",
			LLMPrefix:         "Thought: ",
			Color:             "yellow",
		}, s.verbose)
	default:
		return emit.EmitToolError(ctx, &relay.ToolErrorEvent{Run: run, Err: errors.New(arg)}, s.verbose)
	}
}

func (s *session) status() error {
	mode := "quiet"
	if s.verbose {
		mode = "verbose"
	}
	families := make([]string, len(s.runs))
	for i, r := range s.runs {
		families[i] = r.family
	}
	if _, err := fmt.Fprintf(s.out, "mode: %s, open runs: [%s], observers: %d\n",
		mode, strings.Join(families, " > "), s.stack.registry.Len()); err != nil {
		return err
	}
	if s.stack.tracing != nil {
		_, err := fmt.Fprintf(s.out, "open spans: %d\n", s.stack.tracing.Open())
		return err
	}
	return nil
}

func (s *session) listObservers() error {
	registered := s.stack.registry.Observers()
	for _, n := range s.stack.observers {
		state := color.GreenString("on")
		if !slices.Contains(registered, n.observer) {
			state = color.New(color.Faint).Sprint("muted")
		}
		if _, err := fmt.Fprintf(s.out, "  %-8s %s\n", n.name, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) mute(name string) error {
	o, ok := s.stack.lookup(name)
	if !ok {
		return fmt.Errorf("%w: no observer named %q", errUsage, name)
	}
	if err := s.stack.registry.Remove(o); err != nil {
		return fmt.Errorf("mute %s: %w", name, err)
	}
	return nil
}

func (s *session) unmute(name string) error {
	o, ok := s.stack.lookup(name)
	if !ok {
		return fmt.Errorf("%w: no observer named %q", errUsage, name)
	}
	if slices.Contains(s.stack.registry.Observers(), o) {
		return nil
	}
	s.stack.registry.Add(o)
	return nil
}
