// objectivegate — change verification gate.
// Verifies proposed changes against weighted objectives and issues signed
// certificates. Enforcement, not review comments.
package main

import "github.com/cmc3bear/objectivegate/internal/cli"

func main() {
	cli.Execute()
}
