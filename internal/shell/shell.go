// Package shell implements the interactive model inspection loop.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/search"
	"go.uber.org/zap"
)

// DefaultK is the number of neighbours listed until "set" changes it.
const DefaultK = 20

const suggestionCount = 5

var errQuit = errors.New("quit")

// Options configures a Shell.
type Options struct {
	Prompt string
	K      int
	Logger *zap.Logger
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, s *Shell, arg string) error
}

// Shell reads one command per line and writes results to out.
type Shell struct {
	engine   *search.Engine
	out      io.Writer
	prompt   string
	k        int
	commands map[string]command
	logger   *zap.Logger
}

// New creates a shell over engine writing to out.
func New(engine *search.Engine, out io.Writer, opts Options) *Shell {
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Shell{
		engine:   engine,
		out:      out,
		prompt:   opts.Prompt,
		k:        opts.K,
		commands: commandTable(),
		logger:   opts.Logger,
	}
}

func commandTable() map[string]command {
	return map[string]command{
		"help":     {"help", "Show this list", runHelp},
		"role":     {"role ROLE", "Inspect role matrix", runRole},
		"comprole": {"comprole R1 R2", "Roles similar to the composition R1·R2", runCompRole},
		"calc":     {"calc EXPR", "Calculate vector", runCalc},
		"sim":      {"sim X ~ Y", "Cosine of two expressions", runSim},
		"set":      {"set K", "Display the top K results (default: 20)", runSet},
		"quit":     {"quit", "Quit", runQuit},
	}
}

// K returns the current number of listed neighbours.
func (s *Shell) K() int { return s.k }

// Run reads commands from in until "quit", end of input, or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, s.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if s.Exec(ctx, scanner.Text()) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should stop.
// Command failures are printed, never returned.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, arg, _ := strings.Cut(line, " ")
	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(s.out, "*** Unknown syntax: %s\n", line)
		return false
	}

	err := cmd.run(ctx, s, strings.TrimSpace(arg))
	switch {
	case err == nil:
		return false
	case errors.Is(err, errQuit):
		return true
	}
	s.logger.Debug("Command failed", zap.String("command", name), zap.Error(err))
	fmt.Fprintf(s.out, "Error: %v\n", err)
	if names := s.engine.Suggest(ctx, err, suggestionCount); len(names) > 0 {
		fmt.Fprintf(s.out, "Did you mean: %s?\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(s.out)
	return false
}

func runHelp(_ context.Context, s *Shell, _ string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(s.out, " Command list:")
	for _, name := range names {
		c := s.commands[name]
		fmt.Fprintf(s.out, "\t%-16s%s\n", c.usage, c.help)
	}
	fmt.Fprintln(s.out)
	return nil
}

func runRole(ctx context.Context, s *Shell, arg string) error {
	if arg == "" {
		return errors.New("usage: role ROLE")
	}
	resp, err := s.engine.Role(ctx, arg, s.k)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Matrix non-diagonal:  %g\n", resp.NonDiagonal)
	fmt.Fprintf(s.out, "Matrix diagonal:      %g\n", resp.Diagonal)
	fmt.Fprintf(s.out, "Skewness of Matrix:   %g\n", resp.Skewness)
	if len(resp.Code) > 0 {
		fmt.Fprintf(s.out, "Dec norm:             %g\n", resp.DecoderNorm)
		fmt.Fprintf(s.out, "Decoding cos:         %g\n", resp.DecodingCosine)
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Matrix code:")
		fmt.Fprintln(s.out, resp.Code)
	}
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "Step:                 %d\n", resp.Steps)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Similar Roles:")
	writeRelations(s.out, resp.Similar)
	fmt.Fprintln(s.out)
	return nil
}

func runCompRole(ctx context.Context, s *Shell, arg string) error {
	fields := strings.Split(arg, " ")
	if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
		return errors.New("usage: comprole R1 R2")
	}
	sims, err := s.engine.CompRole(ctx, fields[0], fields[1], s.k)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Similar Roles:")
	writeRelations(s.out, sims)
	fmt.Fprintln(s.out)
	return nil
}

func runCalc(ctx context.Context, s *Shell, arg string) error {
	resp, err := s.engine.Neighbours(ctx, &models.CalcRequest{Expr: arg, K: s.k})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Similar Targets:")
	writeEntities(s.out, resp.Targets)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Strong Contexts:")
	writeEntities(s.out, resp.Contexts)
	fmt.Fprintln(s.out)
	return nil
}

func runSim(ctx context.Context, s *Shell, arg string) error {
	left, right, ok := strings.Cut(arg, " ~ ")
	if !ok {
		return errors.New("usage: sim X ~ Y")
	}
	resp, err := s.engine.Sim(ctx, &models.SimRequest{Left: left, Right: right})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%.6g\n", resp.Similarity)
	return nil
}

func runSet(_ context.Context, s *Shell, arg string) error {
	k, err := strconv.Atoi(arg)
	if err != nil || k <= 0 {
		return fmt.Errorf("set expects a positive integer, got %q", arg)
	}
	s.k = min(k, models.MaxTopK)
	return nil
}

func runQuit(context.Context, *Shell, string) error {
	return errQuit
}

func writeEntities(w io.Writer, items []models.ScoredEntity) {
	for _, it := range items {
		fmt.Fprintf(w, " %.6g\t%s\n", it.Score, it.Entity)
	}
}

func writeRelations(w io.Writer, items []models.ScoredRelation) {
	for _, it := range items {
		fmt.Fprintf(w, " %.6g\t%s\n", it.Score, it.Relation)
	}
}
