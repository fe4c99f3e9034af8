package main

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/edwinsyarief/jotai"
	"github.com/ergochat/readline"
	"github.com/pkg/errors"
)

var ErrUsage = errors.New("usage")

// REPL per se.
type REPL struct {
	Model *Model
	Out   io.Writer
	rl    *readline.Instance
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("spawn"),
	readline.PcItem("set"),
	readline.PcItem("unset"),
	readline.PcItem("get"),

	readline.PcItem("index"),
	readline.PcItem("query"),
	readline.PcItem("scan"),
	readline.PcItem("count"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open(historyFile string) (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "popsim> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// REPL reads and runs one line. It returns io.EOF once the user leaves.
func (repl *REPL) REPL() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return repl.Exec(line)
}

// Exec runs one command line.
func (repl *REPL) Exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "spawn":
		return repl.CommandSpawn(args)
	case "set":
		return repl.CommandSet(args)
	case "unset":
		return repl.CommandUnset(args)
	case "get":
		return repl.CommandGet(args)
	case "index":
		return repl.CommandIndex(args)
	case "query":
		return repl.CommandQuery(args, jotai.Query[Person])
	case "scan":
		return repl.CommandQuery(args, jotai.Scan[Person])
	case "count":
		return repl.CommandCount(args)
	case "help":
		repl.CommandHelp()
		return nil
	case "exit", "quit":
		return io.EOF
	default:
		return errors.Errorf("command unknown: %s", cmd)
	}
}

// spawn [age] [vaccinated]
func (repl *REPL) CommandSpawn(args []string) error {
	m := repl.Model
	var inits []jotai.Init[Person]
	if len(args) > 2 {
		return errors.Wrap(ErrUsage, "spawn [age] [vaccinated]")
	}
	if len(args) > 0 {
		age, err := parseAge(args[0])
		if err != nil {
			return errors.Wrapf(err, "age %q", args[0])
		}
		inits = append(inits, m.Age.With(age))
	}
	if len(args) > 1 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return errors.Wrapf(err, "vaccinated %q", args[1])
		}
		inits = append(inits, m.Vaccinated.With(v))
	}
	id, err := m.People.Spawn(inits...)
	if err != nil {
		return err
	}
	fmt.Fprintln(repl.Out, id)
	return nil
}

// set <id> <property> <value>
func (repl *REPL) CommandSet(args []string) error {
	if len(args) != 3 {
		return errors.Wrap(ErrUsage, "set <id> <property> <value>")
	}
	id, c, err := repl.target(args[0], args[1])
	if err != nil {
		return err
	}
	if err := c.set(id, args[2]); err != nil {
		return err
	}
	repl.show(id)
	return nil
}

// unset <id> <property>
func (repl *REPL) CommandUnset(args []string) error {
	if len(args) != 2 {
		return errors.Wrap(ErrUsage, "unset <id> <property>")
	}
	id, c, err := repl.target(args[0], args[1])
	if err != nil {
		return err
	}
	if err := c.unset(id); err != nil {
		return err
	}
	repl.show(id)
	return nil
}

// get <id> [property]
func (repl *REPL) CommandGet(args []string) error {
	switch len(args) {
	case 1:
		id, err := repl.Model.Person(args[0])
		if err != nil {
			return err
		}
		repl.show(id)
	case 2:
		id, c, err := repl.target(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(repl.Out, c.display(id))
	default:
		return errors.Wrap(ErrUsage, "get <id> [property]")
	}
	return nil
}

// index <property>
func (repl *REPL) CommandIndex(args []string) error {
	if len(args) != 1 {
		return errors.Wrap(ErrUsage, "index <property>")
	}
	c, err := repl.Model.column(args[0])
	if err != nil {
		return err
	}
	c.index()
	fmt.Fprintf(repl.Out, "indexed %s\n", c.name)
	return nil
}

// query <expr>, scan <expr>
func (repl *REPL) CommandQuery(args []string, run func(*jotai.World, jotai.Predicate[Person]) iter.Seq[jotai.EntityID[Person]]) error {
	pred, err := repl.Model.ParsePredicate(strings.Join(args, " "))
	if err != nil {
		return err
	}
	n := 0
	for id := range run(repl.Model.World, pred) {
		fmt.Fprintln(repl.Out, id)
		n++
	}
	fmt.Fprintf(repl.Out, "%d matched\n", n)
	return nil
}

// count <expr>
func (repl *REPL) CommandCount(args []string) error {
	pred, err := repl.Model.ParsePredicate(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(repl.Out, jotai.Count(jotai.Query(repl.Model.World, pred)))
	return nil
}

func (repl *REPL) CommandHelp() {
	fmt.Fprint(repl.Out, `commands:
  spawn [age] [vaccinated]      create a person
  set <id> <property> <value>   set a base property
  unset <id> <property>         clear a base property
  get <id> [property]           show a person or one property
  index <property>              index a property
  query <expr>                  list matches, using indexes when possible
  scan <expr>                   list matches by scanning every person
  count <expr>                  count matches
  exit                          leave
expressions:
  Age>=18 and not Vaccinated=true or AgeGroup=senior
  a bare property matches set values, Prop=- matches unset ones
properties:
`)
	for _, c := range repl.Model.columns {
		kind := "base"
		if c.derived {
			kind = "derived"
		}
		if c.indexed() {
			kind += ", indexed"
		}
		fmt.Fprintf(repl.Out, "  %s (%s)\n", c.name, kind)
	}
}

func (repl *REPL) target(rawID, prop string) (jotai.EntityID[Person], *column, error) {
	id, err := repl.Model.Person(rawID)
	if err != nil {
		return id, nil, err
	}
	c, err := repl.Model.column(prop)
	return id, c, err
}

func (repl *REPL) show(id jotai.EntityID[Person]) {
	parts := make([]string, 0, len(repl.Model.columns))
	for _, c := range repl.Model.columns {
		parts = append(parts, c.name+"="+c.display(id))
	}
	fmt.Fprintf(repl.Out, "%s\t%s\n", id, strings.Join(parts, " "))
}
