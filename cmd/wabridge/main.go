package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wabridge/wabridge/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:   "wabridge",
		Short: "WhatsApp webhook bridge to OpenAI chat completions",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}
