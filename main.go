package main

import (
	"github.com/Nrich-sunny/spiders/cmd"
)

func main() {
	cmd.Execute()
}
