// Package nvimhost exposes klsp to Neovim as a remote plugin. It manages a single klsp server for the editing
// session and surfaces its lifecycle as user commands.
package nvimhost

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/x86y/klsp/lspclient"
)

// App holds the klsp client shared by all command handlers.
type App struct {
	mu     sync.Mutex
	client *lspclient.Client
}

// Register registers the plugin's handlers with Neovim.
func Register(p *plugin.Plugin) error {
	app := &App{}
	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})
	p.HandleCommand(&plugin.CommandOptions{Name: "KlspStart"}, app.Start)
	p.HandleCommand(&plugin.CommandOptions{Name: "KlspStatus"}, app.Status)
	p.HandleCommand(&plugin.CommandOptions{Name: "KlspStop"}, app.Stop)
	return nil
}

// Start spawns a klsp server rooted at the current buffer's repository and opens the buffer with it. The server
// binary is taken from g:klsp_path, falling back to "klsp" on $PATH.
func (a *App) Start(v *nvim.Nvim) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return echo(v, "already running")
	}

	path := "klsp"
	var configured string
	if err := v.Var("klsp_path", &configured); err == nil && configured != "" {
		path = configured
	}

	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	name, err := v.BufferName(buf)
	if err != nil {
		return err
	}
	if name == "" {
		return echo(v, "current buffer has no file")
	}

	client, err := lspclient.New(lspclient.Config{
		Path:    path,
		RootDir: lspclient.DetectRootDir(name),
	})
	if err != nil {
		return err
	}
	if err := client.Start(context.Background()); err != nil {
		return fmt.Errorf("starting klsp: %w", err)
	}

	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		client.Stop(context.Background())
		return err
	}
	text := string(bytes.Join(lines, []byte("\n")))
	if err := client.OpenDocument(name, text, 1); err != nil {
		client.Stop(context.Background())
		return fmt.Errorf("opening %s: %w", name, err)
	}

	a.client = client
	return echo(v, "started for %s", name)
}

// Status reports the lifecycle state of the managed server.
func (a *App) Status(v *nvim.Nvim) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return echo(v, "not running")
	}
	return echo(v, "%s", a.client.State())
}

// Stop shuts the managed server down.
func (a *App) Stop(v *nvim.Nvim) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return echo(v, "not running")
	}
	err := a.client.Stop(context.Background())
	a.client = nil
	if err != nil {
		return fmt.Errorf("stopping klsp: %w", err)
	}
	return echo(v, "stopped")
}

func echo(v *nvim.Nvim, format string, a ...any) error {
	return v.Command(fmt.Sprintf(`echom "[klsp] %s"`, fmt.Sprintf(format, a...)))
}
