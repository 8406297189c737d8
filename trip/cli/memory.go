package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and manage the memory store",
	}

	memoryCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("setup", err)
			}
			printJSON(os.Stdout, a.manager.MemoryStats())
		},
	})

	memoryCmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List session ids",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("setup", err)
			}
			for _, id := range a.manager.Sessions() {
				fmt.Println(id)
			}
		},
	})

	clearCmd := &cobra.Command{
		Use:   "clear [session]",
		Short: "Clear one session's history, or all memories with --all",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("setup", err)
			}
			all, _ := cmd.Flags().GetBool("all")
			switch {
			case all:
				a.manager.ClearAllMemory()
				fmt.Println("all memories deleted")
			case len(args) > 0:
				a.manager.ClearSession(args[0])
				fmt.Printf("session %s cleared\n", args[0])
			default:
				a.manager.ClearSession(sessionID)
				fmt.Printf("session %s cleared\n", sessionID)
			}
		},
	}
	clearCmd.Flags().Bool("all", false, "Delete every stored memory entry")
	memoryCmd.AddCommand(clearCmd)

	RootCmd.AddCommand(memoryCmd)
}
