package main

import (
	"longform/cmd/cmd"
	"longform/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
