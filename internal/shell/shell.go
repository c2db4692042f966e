// Package shell is an interactive control surface for one saved view:
// each command becomes a dashboard event and the chart is reprojected.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"chartkit/internal/domain"
	"chartkit/internal/filter"
	"chartkit/internal/render"
	"chartkit/internal/service"
)

const prompt = "chartkit> "

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// Shell drives one view's session from typed commands.
type Shell struct {
	dash *service.DashboardService
	view string
	out  io.Writer
	size render.Size

	// HistoryFile persists command history between runs when set.
	HistoryFile string
}

func New(dash *service.DashboardService, view string, out io.Writer, size render.Size) *Shell {
	return &Shell{dash: dash, view: view, out: out, size: size}
}

var commands = []string{"where", "range", "clear", "toggle", "select", "scale", "show", "rows", "render", "reload", "help", "exit"}

const help = `Commands:
  where <field> <value|All>   keep rows whose field equals value
  range <start> <end>         keep rows dated between start and end (YYYY-MM-DD, inclusive)
  clear                       drop every filter
  toggle <series>             show or hide a series
  select <a,b,...>            show exactly these series
  scale linear|log            value axis scale
  show                        describe the current chart
  rows [n]                    print the first n filtered rows (default 10)
  render <path>               write the chart (.svg or .json)
  reload                      reload the view's data
  help                        this text
  exit                        leave the shell`

// Run reads commands until exit or end of input.
func (sh *Shell) Run(ctx context.Context) error {
	sess, v, err := sh.dash.Session(ctx, sh.view)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.completer(sess.Rows().Schema()))

	if sh.HistoryFile != "" {
		if f, err := os.Open(sh.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			os.MkdirAll(filepath.Dir(sh.HistoryFile), 0755)
			if f, err := os.Create(sh.HistoryFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(sh.out, "%s: %d rows loaded. Type 'help' for commands.\n", v.Name, sess.Rows().Len())
	sh.show(ctx)

	for {
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			fmt.Fprintln(sh.out, "^C")
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(sh.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if err := sh.Exec(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line.
func (sh *Shell) Exec(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "where":
		if len(args) < 2 {
			return errors.New("usage: where <field> <value|All>")
		}
		// values may contain spaces
		return sh.dispatch(ctx, "set_filter", map[string]any{"field": args[0], "value": strings.Join(args[1:], " ")})
	case "range":
		if len(args) != 2 {
			return errors.New("usage: range <start> <end>")
		}
		return sh.dispatch(ctx, "set_range", map[string]any{"start": args[0], "end": args[1]})
	case "clear":
		return sh.dispatch(ctx, "clear", nil)
	case "toggle":
		if len(args) != 1 {
			return errors.New("usage: toggle <series>")
		}
		return sh.dispatch(ctx, "toggle_series", map[string]any{"field": args[0]})
	case "select":
		return sh.dispatch(ctx, "select_series", map[string]any{"fields": strings.Join(args, ",")})
	case "scale":
		if len(args) != 1 {
			return errors.New("usage: scale linear|log")
		}
		return sh.dispatch(ctx, "set_scale", map[string]any{"scale": args[0]})
	case "show":
		return sh.show(ctx)
	case "rows":
		n := 10
		if len(args) == 1 {
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n <= 0 {
				return fmt.Errorf("rows: bad count %q", args[0])
			}
		}
		return sh.rows(ctx, n)
	case "render":
		if len(args) != 1 {
			return errors.New("usage: render <path>")
		}
		return sh.render(ctx, args[0])
	case "reload":
		sh.dash.Reload(sh.view)
		return sh.show(ctx)
	case "help", "?":
		fmt.Fprintln(sh.out, help)
		return nil
	case "exit", "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (sh *Shell) dispatch(ctx context.Context, event string, args map[string]any) error {
	spec, err := sh.dash.Dispatch(ctx, sh.view, event, args)
	if err != nil {
		var perr *domain.ProjectionError
		if errors.As(err, &perr) {
			fmt.Fprintf(sh.out, "chart unavailable: %v\n", perr.Err)
			return nil
		}
		return err
	}
	describe(sh.out, spec)
	return nil
}

func (sh *Shell) show(ctx context.Context) error {
	sess, _, err := sh.dash.Session(ctx, sh.view)
	if err != nil {
		return err
	}
	st := sess.State()
	fmt.Fprintf(sh.out, "filter: %s\n", st.Criteria)
	spec, err := sess.Spec()
	if err != nil {
		fmt.Fprintf(sh.out, "chart unavailable: %v\n", err)
		return nil
	}
	describe(sh.out, spec)
	return nil
}

func (sh *Shell) rows(ctx context.Context, n int) error {
	sess, _, err := sh.dash.Session(ctx, sh.view)
	if err != nil {
		return err
	}
	t, err := sess.Filtered()
	if err != nil {
		return err
	}
	names := t.Schema().FieldNames()
	fmt.Fprintln(sh.out, strings.Join(names, "\t"))
	for i := 0; i < t.Len() && i < n; i++ {
		cells := make([]string, len(names))
		for j, name := range names {
			cells[j], _ = t.At(i).Display(name)
		}
		fmt.Fprintln(sh.out, strings.Join(cells, "\t"))
	}
	if t.Len() > n {
		fmt.Fprintf(sh.out, "... %d more\n", t.Len()-n)
	}
	return nil
}

func (sh *Shell) render(ctx context.Context, path string) error {
	sess, _, err := sh.dash.Session(ctx, sh.view)
	if err != nil {
		return err
	}
	spec, err := sess.Spec()
	if err != nil {
		return err
	}
	format, err := render.FormatForPath(path)
	if err != nil {
		return err
	}
	if err := render.WriteFile(ctx, path, format, sh.size, spec); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "wrote %s\n", path)
	return nil
}

// describe prints a text summary of spec.
func describe(w io.Writer, spec *domain.ChartSpec) {
	fmt.Fprintf(w, "%s chart, %s scale, values %g..%g\n",
		spec.Kind, spec.Scale, spec.ValueDomain.Min, spec.ValueDomain.Max)
	if spec.TimeDomain != nil {
		fmt.Fprintf(w, "dates %s..%s\n",
			spec.TimeDomain.Min.Format(domain.DateLayout), spec.TimeDomain.Max.Format(domain.DateLayout))
	}
	if len(spec.CategoryDomain) > 0 {
		fmt.Fprintf(w, "%s: %s\n", spec.CategoryField, strings.Join(spec.CategoryDomain, ", "))
	}
	for _, s := range spec.Series {
		mark := " "
		if s.Visible {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s (%d points)\n", mark, s.Name, len(s.Points))
	}
}

// completer completes command names, then field names, then the values
// seen for a field after "where".
func (sh *Shell) completer(schema domain.Schema) liner.Completer {
	fields := schema.FieldNames()
	series := schema.NumberFields()
	return func(line string) []string {
		parts := strings.Fields(line)
		trailing := strings.HasSuffix(line, " ")
		if len(parts) == 0 || (len(parts) == 1 && !trailing) {
			return prefixed("", commands, firstOr(parts, ""))
		}

		cmd := parts[0]
		var candidates []string
		switch {
		case cmd == "where" && (len(parts) == 1 || len(parts) == 2 && !trailing):
			candidates = fields
		case cmd == "where" && (len(parts) == 2 || len(parts) == 3 && !trailing):
			candidates = sh.values(parts[1])
		case cmd == "toggle" && (len(parts) == 1 || len(parts) == 2 && !trailing):
			candidates = series
		case cmd == "scale" && (len(parts) == 1 || len(parts) == 2 && !trailing):
			candidates = []string{string(domain.ScaleLinear), string(domain.ScaleLog)}
		default:
			return nil
		}

		word := ""
		if !trailing {
			word = parts[len(parts)-1]
			parts = parts[:len(parts)-1]
		}
		return prefixed(strings.Join(parts, " ")+" ", candidates, word)
	}
}

func (sh *Shell) values(field string) []string {
	sess, _, err := sh.dash.Session(context.Background(), sh.view)
	if err != nil {
		return nil
	}
	return filter.Distinct(sess.Rows(), field)
}

func prefixed(head string, candidates []string, word string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			out = append(out, head+c)
		}
	}
	sort.Strings(out)
	return out
}

func firstOr(parts []string, def string) string {
	if len(parts) > 0 {
		return parts[0]
	}
	return def
}
