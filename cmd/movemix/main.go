package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: movemix <command> [flags]

commands:
  add             log a new session
  update          change fields of a logged session
  remove          delete a session
  list            session history (search and day filters)
  stats           KPI card, type distribution and weekly rollup
  settings        show or change weight and MET values
  reset-settings  restore default settings
  export          write the whole document as JSON
  import          replace the document with a JSON backup
  clear           delete all stored data
  archive         write the file backend data dir as .tar.gz

run "movemix <command> -h" for the flags of a command
`

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "movemix: %s\n", err)
		}
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	log.SetOutput(stderr)
	log.SetLevel(log.WarnLevel)

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}

	c := &cli{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	return cmd(ctx, c, args[1:])
}
