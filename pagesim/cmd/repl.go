package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

// A repl reads logical addresses and commands line by line.
type repl struct {
	unit *mmu.Comp
	in   *bufio.Scanner
	out  io.Writer
}

func newREPL(unit *mmu.Comp, in io.Reader, out io.Writer) *repl {
	return &repl{
		unit: unit,
		in:   bufio.NewScanner(in),
		out:  out,
	}
}

// run serves commands until exit or the end of the input.
func (r *repl) run() error {
	for {
		r.printUsage()
		fmt.Fprint(r.out, "Logical address: ")

		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())

		switch line {
		case "":
			continue
		case "exit":
			return nil
		case "cat":
			r.cat()
		case "tables":
			printTables(r.out, r.unit)
		default:
			r.translate(line)
		}

		fmt.Fprintln(r.out)
	}
}

func (r *repl) printUsage() {
	fmt.Fprintln(r.out, "enter an address, 'cat' to concatenate all "+
		"memory values, 'tables' to print the tables, or 'exit' to exit")
}

func (r *repl) cat() {
	fmt.Fprintln(r.out, "Concatenating memory values...")
	fmt.Fprintf(r.out, "%s\n", r.unit.Concatenate())
}

func (r *repl) translate(addr string) {
	t, err := r.unit.Translate(addr)
	if errors.Is(err, vm.ErrAddressNotFound) {
		fmt.Fprintln(r.out, "logical address not found")
		fmt.Fprintln(r.out, "Please enter a valid address from the following list:")
		printLogicalAddresses(r.out, r.unit)

		return
	}

	fmt.Fprintln(r.out, "logical address found")
	printTranslations(r.out, []mmu.Translation{t})
}
