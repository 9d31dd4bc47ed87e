// Command sarf is the command-line front end of the morph engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/kerem-kaynak/sarf/internal/config"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(config.Load(), in, out, errOut)
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
