package main

import "github.com/trevortrinh/vigil-hypertrace/cmd"

func main() {
	cmd.Execute()
}
