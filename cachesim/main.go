// Command cachesim simulates a set-associative cache over memory traces.
package main

import "github.com/sarchlab/cachesim/cachesim/cmd"

func main() {
	cmd.Execute()
}
