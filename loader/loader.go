// Package loader reads assembly program text for the simulator.
//
// A program file holds one instruction per line. Blank lines and '#'
// comments are dropped. A line may start with "label:"; the label is
// recorded against the index of the next instruction and removed from the
// text. Labels are informational since the instruction set has no branches.
package loader

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// CommentMarker starts a comment that runs to the end of the line.
const CommentMarker = '#'

var (
	// ErrDuplicateLabel is returned when a label is defined twice.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrEmptyLabel is returned for a line starting with ':'.
	ErrEmptyLabel = errors.New("empty label")
)

// Program is a loaded assembly program.
type Program struct {
	// Source is the file the program was read from, if any.
	Source string
	// Instructions holds the instruction lines, labels and comments removed.
	Instructions []string
	// Lines holds the 1-based source line of each instruction.
	Lines []int
	// Labels maps each label to the index of the instruction it precedes.
	Labels map[string]int
}

// Load reads and parses a program file.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program file")
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	prog.Source = path

	return prog, nil
}

// ParseString parses program text held in memory.
func ParseString(text string) (*Program, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads program text from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{Labels: map[string]int{}}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := stripComment(scanner.Text())
		label, rest, hasLabel := strings.Cut(line, ":")
		if hasLabel {
			if err := prog.addLabel(strings.TrimSpace(label)); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			line = rest
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		prog.Instructions = append(prog.Instructions, line)
		prog.Lines = append(prog.Lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read program")
	}

	return prog, nil
}

func (p *Program) addLabel(name string) error {
	if name == "" {
		return ErrEmptyLabel
	}
	if _, ok := p.Labels[name]; ok {
		return errors.Wrapf(ErrDuplicateLabel, "%q", name)
	}
	p.Labels[name] = len(p.Instructions)
	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, CommentMarker); i >= 0 {
		return line[:i]
	}
	return line
}

// ResolveLabels removes "label:" prefixes from already-trimmed lines and
// returns the remaining instructions with the label table. Blank lines are
// dropped.
func ResolveLabels(lines []string) ([]string, map[string]int, error) {
	prog, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		return nil, nil, err
	}
	return prog.Instructions, prog.Labels, nil
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Validate decodes every instruction with d and returns the first error,
// annotated with its source line. Unknown mnemonics decode as NOPs and are
// not errors.
func (p *Program) Validate(d *insts.Decoder) error {
	for i, text := range p.Instructions {
		if _, err := d.Decode(text); err != nil {
			return errors.Wrapf(err, "%s line %d", p.name(), p.Lines[i])
		}
	}
	return nil
}

func (p *Program) name() string {
	if p.Source == "" {
		return "<input>"
	}
	return p.Source
}
