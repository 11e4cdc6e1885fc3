package codec

import (
	"sort"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/tidwall/gjson"
)

// DecodeProviders decodes the provider catalogue. Models arrive keyed by id
// and are flattened into a list sorted by name. Providers without an id are
// skipped.
func DecodeProviders(body []byte) (*types.Providers, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewDecodeError("providers is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	list := root.Get("providers")
	if !list.IsArray() {
		return nil, apperrors.NewShapeError("providers", "providers is not an array")
	}

	out := &types.Providers{Providers: make([]types.Provider, 0, len(list.Array()))}
	for _, raw := range list.Array() {
		id := raw.Get("id")
		if id.Type != gjson.String || id.Str == "" {
			continue
		}
		p := types.Provider{ID: id.Str, Name: raw.Get("name").String()}
		if p.Name == "" {
			p.Name = p.ID
		}
		p.Models = decodeModels(raw.Get("models"))
		out.Providers = append(out.Providers, p)
	}

	if def := root.Get("default"); def.IsObject() {
		out.Default = make(map[string]string)
		def.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				out.Default[key.Str] = value.Str
			}
			return true
		})
	}
	return out, nil
}

// decodeModels accepts the id-keyed object form and a plain array
func decodeModels(raw gjson.Result) []types.Model {
	models := make([]types.Model, 0)
	add := func(id string, m gjson.Result) {
		if id == "" {
			return
		}
		model := types.Model{ID: id, Name: m.Get("name").String()}
		if model.Name == "" {
			model.Name = id
		}
		if limit := m.Get("limit"); limit.IsObject() {
			model.Limit = &types.ModelLimit{
				Context: int(limit.Get("context").Int()),
				Output:  int(limit.Get("output").Int()),
			}
		}
		models = append(models, model)
	}

	switch {
	case raw.IsObject():
		raw.ForEach(func(key, value gjson.Result) bool {
			add(key.Str, value)
			return true
		})
	case raw.IsArray():
		for _, value := range raw.Array() {
			add(value.Get("id").String(), value)
		}
	}
	types.SortModels(models)
	return models
}

// DecodeMCPStatus decodes the MCP server map, keyed by server name, into a
// list sorted by name. A missing name is taken from the key.
func DecodeMCPStatus(body []byte) ([]types.MCPStatus, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewDecodeError("mcp status is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, apperrors.NewShapeError("mcp", "mcp status is not an object")
	}

	servers := make([]types.MCPStatus, 0)
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		server := types.MCPStatus{
			Name:             value.Get("name").String(),
			ConnectionStatus: value.Get("connectionStatus").String(),
			Error:            value.Get("error").String(),
		}
		if server.Name == "" {
			server.Name = key.Str
		}
		if server.ConnectionStatus == "" {
			// newer servers report {"status": "connected"}
			server.ConnectionStatus = value.Get("status").String()
		}
		for _, tool := range value.Get("tools").Array() {
			server.Tools = append(server.Tools, tool.String())
		}
		servers = append(servers, server)
		return true
	})
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers, nil
}
