// Command vmsim translates logical addresses through a simulated TLB and page
// table, loading pages on demand from a backing store.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
