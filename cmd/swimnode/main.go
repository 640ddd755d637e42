// Command swimnode runs one member of a SWIM-style gossip cluster.
package main

import "github.com/tutu-network/swimcluster/internal/cli"

func main() {
	cli.Execute()
}
