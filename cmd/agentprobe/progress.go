package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/supervisor"
)

// console prints live run progress and the completion line.
type console struct {
	w     io.Writer
	dim   lipgloss.Style
	agent lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
}

// newConsole styles output for w. Colors are dropped unless w is a terminal.
func newConsole(w io.Writer) *console {
	opts := []termenv.OutputOption{}
	if f, isFile := w.(*os.File); !isFile || !term.IsTerminal(int(f.Fd())) {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	r := lipgloss.NewRenderer(w, opts...)
	return &console{
		w:     w,
		dim:   r.NewStyle().Foreground(lipgloss.Color("8")),
		agent: r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (c *console) observer() supervisor.Observer {
	return func(p supervisor.Progress) {
		stamp := c.dim.Render(fmt.Sprintf("[%ds]", int(p.Elapsed.Seconds())))
		switch p.Event.Kind {
		case agentprobe.EventToolCall:
			fmt.Fprintf(c.w, "%s Tool #%d: %s\n", stamp, p.ToolCount, p.Event.Name)
		case agentprobe.EventAgentDelegation:
			fmt.Fprintf(c.w, "%s %s\n", stamp, c.agent.Render("Agent invoked: "+p.Event.Name))
		}
	}
}

func (c *console) finished(res *agentprobe.Result) {
	secs := int(res.ElapsedSeconds())
	switch {
	case res.TimedOut():
		fmt.Fprintln(c.w, c.fail.Render(fmt.Sprintf("Claude timed out after %ds", secs)))
	case res.ExitCode == 0:
		fmt.Fprintln(c.w, c.ok.Render(fmt.Sprintf("Claude completed in %ds", secs)))
	default:
		fmt.Fprintln(c.w, c.fail.Render(fmt.Sprintf("Claude exited with code %d after %ds", res.ExitCode, secs)))
	}
}

func (c *console) check(name string, passed bool) {
	if passed {
		fmt.Fprintln(c.w, c.ok.Render("PASS "+name))
		return
	}
	fmt.Fprintln(c.w, c.fail.Render("FAIL "+name))
}
