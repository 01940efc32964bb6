package lsp

import (
	"github.com/tidwall/gjson"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/lsp/protocol"
)

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#workspace_didChangeConfiguration
func (h *Handler) workspaceDidChangeConfiguration(params *protocol.DidChangeConfigurationParams) error {
	h.applySettings(string(params.Settings))
	for _, doc := range h.docs {
		h.publishDiagnostics(doc)
	}
	return nil
}

// applySettings updates the handler's settings from a client provided JSON document. Settings may be sent either at
// the top level or nested under a "klsp" key, depending on how the client scopes configuration. Unknown keys are
// ignored and missing keys keep their current value.
func (h *Handler) applySettings(settingsJSON string) {
	if !gjson.Valid(settingsJSON) {
		h.log.Warningf("Ignoring invalid settings JSON: %s", settingsJSON)
		return
	}
	doc := gjson.Parse(settingsJSON)
	if klsp := doc.Get("klsp"); klsp.IsObject() {
		doc = klsp
	}
	if path := doc.Get("interpreterPath"); path.Type == gjson.String {
		h.settings.interpreterPath = path.String()
	}
	if diagnostics := doc.Get("diagnostics"); diagnostics.Type == gjson.True || diagnostics.Type == gjson.False {
		h.settings.diagnostics = diagnostics.Bool()
	}
	h.interp = interp.New(h.settings.interpreterPath)
}
