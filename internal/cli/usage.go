package cli

import "fmt"

func printUsage() {
	fmt.Print(`agentkit - developer tooling for agentkit applications

Usage:
  agentkit ui:start [--port=N] [--open]     start (or reuse) the Developer UI
  agentkit ui:stop                          stop the running Developer UI
  agentkit ui:history [--limit=N]           show recent Developer UI launches
  agentkit run [--id=runtime] [--timeout=S] <command ...>
                                            run an application and wait for its
                                            runtime to register
  agentkit help                             show this help

Environment:
  AGENTKIT_STATE_DIR   per-project tool-state directory (default ./.agentkit)
  AGENTKIT_UI_PORT     default port for ui:start (default: ephemeral)
  AGENTKIT_UI_OPEN     open the browser after ui:start (default false)
  AGENTKIT_DEBUG       log the underlying cause of start failures
`)
}
