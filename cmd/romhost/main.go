package main

import "github.com/MeKo-Tech/romhost/internal/cmd"

func main() {
	cmd.Execute()
}
