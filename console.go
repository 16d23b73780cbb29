package main

import (
	"context"
	"sync"
)

// runConsole runs the bridge in the foreground until ctx is cancelled,
// printing worker output to the terminal.
func runConsole(ctx context.Context, agent *Agent) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		agent.Pump(context.Background(), nil)
	}()

	err := agent.Start()
	if err == nil {
		<-ctx.Done()
	}

	agent.Quit()
	wg.Wait()
	return err
}
