package main

import (
	"github.com/lehigh-university-libraries/refer/cmd"
)

func main() {
	cmd.Execute()
}
