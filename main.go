package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"chartkit/internal/app"
	"chartkit/internal/config"
	"chartkit/internal/service"
)

const usage = `chartkit: filterable charts over tabular data

Usage:
  chartkit mcp     [-config path]                        serve MCP tools on stdin/stdout
  chartkit shell   [-config path] -view <id|name>        interactive dashboard
  chartkit render  [-config path] -view <id|name> -o out.svg|out.json
  chartkit exports [-config path]                        run scheduled and file-watch exports
  chartkit secret  set|delete [-config path] -connection <name>
                                                         store a connection password (keychain backend)

Environment:
  CHARTKIT_CONFIG          config file used when -config is not given
  CHARTKIT_SECRET_DB_<NAME> database passwords for the env secret backend
`

type options struct {
	configPath string
	view       string
	out        string
	connection string
	action     string
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("chartkit: ")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var opts options
	if cmd == "secret" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	fs.StringVar(&opts.configPath, "config", "", "Path to chartkit.yaml")
	fs.StringVar(&opts.view, "view", "", "View id or name")
	fs.StringVar(&opts.out, "o", "", "Output file (.svg or .json)")
	fs.StringVar(&opts.connection, "connection", "", "Connection name from the config file")
	fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, opts); err != nil {
		var placeholder *service.PlaceholderError
		if errors.As(err, &placeholder) {
			log.Printf("%v (placeholder written to %s)", err, placeholder.Path)
			os.Exit(3)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd string, opts options) error {
	switch cmd {
	case "mcp", "shell", "render", "exports", "secret":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try chartkit help)", cmd)
	}
	if (cmd == "shell" || cmd == "render") && opts.view == "" {
		return fmt.Errorf("%s: -view is required", cmd)
	}
	if cmd == "render" && opts.out == "" {
		return fmt.Errorf("render: -o is required")
	}
	if cmd == "secret" {
		if opts.action != "set" && opts.action != "delete" {
			return fmt.Errorf("secret: expected set or delete, got %q", opts.action)
		}
		if opts.connection == "" {
			return fmt.Errorf("secret: -connection is required")
		}
	}

	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return err
	}
	a, err := app.Open(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "mcp":
		log.Println("[MCP] serving on stdio")
		return a.ServeMCP(ctx)
	case "shell":
		return a.RunShell(ctx, opts.view)
	case "render":
		if err := a.Render(ctx, opts.view, opts.out); err != nil {
			return err
		}
		log.Printf("wrote %s", opts.out)
		return nil
	case "secret":
		if opts.action == "delete" {
			return a.DeletePassword(opts.connection)
		}
		password, err := readPassword(opts.connection)
		if err != nil {
			return err
		}
		return a.SetPassword(opts.connection, password)
	default:
		return a.RunExports(ctx)
	}
}

// readPassword prompts without echo on a terminal and otherwise reads
// the first line of stdin.
func readPassword(connection string) ([]byte, error) {
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		line := liner.NewLiner()
		defer line.Close()
		pw, err := line.PasswordPrompt(fmt.Sprintf("password for %s: ", connection))
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		return []byte(pw), nil
	}
	pw, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && pw == "" {
		return nil, fmt.Errorf("read password from stdin: %w", err)
	}
	return []byte(strings.TrimRight(pw, "\r\n")), nil
}
