package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printLoadTable(w io.Writer, ts []mmu.Translation) {
	fmt.Fprintln(w, "printing addresses for physical memory")

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "addr\tpage_num\toffset\tphys_addr\tblock")

	for _, t := range ts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%q\n",
			t.Logical(), t.Page(), t.Offset(), t.Physical(), t.Data)
	}

	tw.Flush()
	fmt.Fprintln(w)
}

func printTranslations(w io.Writer, ts []mmu.Translation) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "logical address\tpage number\tphysical address\tdata")

	for _, t := range ts {
		data := fmt.Sprintf("%q", t.Data)
		if !t.Resident {
			data = "<empty>"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.Logical(), t.Page(), t.Physical(), data)
	}

	tw.Flush()
	fmt.Fprintln(w)
}

func printLogicalAddresses(w io.Writer, unit *mmu.Comp) {
	fmt.Fprint(w, "[")

	for i, addr := range unit.LogicalAddresses() {
		if i > 0 {
			fmt.Fprint(w, " ")
		}

		fmt.Fprint(w, unit.Format().FormatAddr(addr))
	}

	fmt.Fprintln(w, "]")
}

func printTables(w io.Writer, unit *mmu.Comp) {
	fmt.Fprintln(w, "printing logical addresses...")
	printLogicalAddresses(w, unit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "printing page table...")

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "page\tframe")

	for _, p := range unit.PageTable().Pages() {
		fmt.Fprintf(tw, "%s\t%s\n",
			unit.Format().FormatPage(p.PageNum),
			unit.Format().FormatPage(p.Frame))
	}

	tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "printing physical memory...")

	tw = newTabWriter(w)
	fmt.Fprintln(tw, "phys_addr\tblock")

	for _, e := range unit.PhysicalEntries() {
		fmt.Fprintf(tw, "%s\t%q\n", unit.Format().FormatAddr(e.Addr), e.Data)
	}

	tw.Flush()
	fmt.Fprintln(w)
}
