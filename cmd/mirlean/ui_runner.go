package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/driver"
	"mirlean/internal/mir"
	"mirlean/internal/ui"
)

type translateOutcome struct {
	out *driver.Output
	err error
}

func runTranslateWithUI(ctx context.Context, title string, c *mir.Crate, opts driver.Options) (*driver.Output, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan translateOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = buildpipeline.MultiSink{opts.Progress, buildpipeline.ChannelSink{Ch: events}}
		out, err := driver.Translate(ctx, c, optsCopy)
		outcomeCh <- translateOutcome{out: out, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, driver.Selected(c, opts), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// The UI may quit early; keep the translation from blocking on events.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.out, uiErr
	}
	return outcome.out, outcome.err
}
