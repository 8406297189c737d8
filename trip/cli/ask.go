package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		exitErr("setup", err)
	}

	question := strings.Join(args, " ")
	result, err := a.pipeline.Run(cmd.Context(), sessionID, question)
	if err != nil {
		exitErr("ask", err)
	}

	fmt.Println(result.Answer)
}
