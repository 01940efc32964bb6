// Entry point for the klsp Neovim remote plugin host.
package main

import (
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/x86y/klsp/nvimhost"
)

func main() {
	plugin.Main(nvimhost.Register)
}
